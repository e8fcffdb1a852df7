package seqloq

import (
	"runtime"
	"sync/atomic"
)

// spinReads is how many times a reader re-loads an odd sequence before it
// starts yielding the processor between loads.
const spinReads = 16

// SeqCount is the odd/even sequence counter underlying a Seqloq.
// The counter is even while no write is in progress and odd while one is.
// A read of counter-protected data is consistent iff the counter holds the
// same even value before and after the read.
//
// SeqCount does not serialize writers; callers with more than one writer
// must arrange exclusion themselves (Seqloq uses a sync.Mutex).
type SeqCount struct {
	seq atomic.Uint64
}

// BeginRead waits for any in-progress write to finish and returns the
// current (even) sequence value. Pass the returned value to ReadOk after
// reading the protected data.
func (c *SeqCount) BeginRead() uint64 {
	if seq := c.seq.Load(); seq&1 == 0 {
		return seq
	}
	return c.beginReadSlow()
}

func (c *SeqCount) beginReadSlow() uint64 {
	for i := 0; ; i++ {
		if i >= spinReads {
			runtime.Gosched()
		}
		if seq := c.seq.Load(); seq&1 == 0 {
			return seq
		}
	}
}

// ReadOk reports whether a read that started at sequence value seq did not
// overlap any write. If it returns false the caller must discard what it
// read and retry.
func (c *SeqCount) ReadOk(seq uint64) bool {
	return c.seq.Load() == seq
}

// BeginWrite marks the start of a write, moving the counter to an odd value.
// Every BeginWrite must be paired with exactly one EndWrite.
func (c *SeqCount) BeginWrite() {
	if seq := c.seq.Add(1); seq&1 == 0 {
		panic("seqloq: BeginWrite during an active write")
	}
}

// EndWrite marks the end of a write, moving the counter back to an even
// value and publishing the new data to readers.
func (c *SeqCount) EndWrite() {
	if seq := c.seq.Add(1); seq&1 != 0 {
		panic("seqloq: EndWrite without an active write")
	}
}
