package seqloq

import (
	"sync"
	"unsafe"

	"github.com/CreditWorthy/seqloq/internal/hacks"
)

// Seqloq protects a small value of type T, optimizing for frequent reads
// and infrequent writes. Readers never block writers: Snapshot and Peek
// proceed optimistically and retry if a write overlapped them, while
// writers serialize on an internal mutex and publish through the sequence
// counter.
//
// T must be safe to duplicate by a plain byte copy: no pointers, maps,
// channels, or other values whose torn intermediate bytes would be unsafe
// to observe and then discard. Embedding such values voids the safety
// argument; the type system cannot enforce this.
type Seqloq[T any] struct {
	mu   sync.Mutex
	seq  SeqCount
	data T
}

// New returns a Seqloq protecting a copy of initial.
func New[T any](initial T) *Seqloq[T] {
	return &Seqloq[T]{data: initial}
}

// Snapshot returns a consistent copy of the protected value. It never
// blocks on the writer mutex; if a write overlaps the copy, Snapshot
// retries until it observes a quiescent value.
func (s *Seqloq[T]) Snapshot() T {
	for {
		seq := s.seq.BeginRead()
		var val T
		if RaceEnabled {
			// The race detector cannot model an optimistic read that
			// retries on conflict. Copy through runtime.memmove, which is
			// not instrumented.
			hacks.Memmove(unsafe.Pointer(&val), unsafe.Pointer(&s.data), unsafe.Sizeof(val))
		} else {
			val = s.data
		}
		if s.seq.ReadOk(seq) {
			return val
		}
	}
}

// Peek runs f against the protected value without copying it and returns
// f's result once a run is known not to have overlapped a write.
//
// f may run more than once; discarded runs must leave no externally
// visible side effects. The pointed-to value can change while f executes,
// so f must tolerate torn reads, must not follow references found in the
// payload, and must not retain the pointer past its return. Unlike
// Snapshot, reads made by f are visible to the race detector.
func Peek[T, R any](s *Seqloq[T], f func(*T) R) R {
	for {
		seq := s.seq.BeginRead()
		r := f(&s.data)
		if s.seq.ReadOk(seq) {
			return r
		}
	}
}

// AcquireWrite blocks until exclusive write access is available and
// returns a guard exposing the payload. The caller must release the guard
// on every path, normally with defer:
//
//	g := s.AcquireWrite()
//	defer g.Release()
//	g.Value().Field = 42
//
// Concurrent readers may observe the payload mid-mutation and will retry;
// the new value is published when the guard is released. Acquiring a
// second guard on the same Seqloq from the holding goroutine deadlocks.
func (s *Seqloq[T]) AcquireWrite() *WriteGuard[T] {
	s.mu.Lock()
	s.seq.BeginWrite()
	return &WriteGuard[T]{s: s}
}

// Set replaces the protected value. Shorthand for an AcquireWrite /
// Release pair around a single store.
func (s *Seqloq[T]) Set(val T) {
	g := s.AcquireWrite()
	defer g.Release()
	if RaceEnabled {
		hacks.Memmove(unsafe.Pointer(&s.data), unsafe.Pointer(&val), unsafe.Sizeof(val))
	} else {
		s.data = val
	}
}

// WriteGuard represents exclusive write access to a Seqloq. It is valid
// from AcquireWrite until Release and must not be shared across
// goroutines.
type WriteGuard[T any] struct {
	s *Seqloq[T]
}

// Value returns a pointer to the payload. The pointer must not be used
// after the guard is released.
func (g *WriteGuard[T]) Value() *T {
	if g.s == nil {
		panic("seqloq: Value on a released WriteGuard")
	}
	return &g.s.data
}

// Release publishes the mutated value and gives up write access.
// Releasing a guard twice panics.
func (g *WriteGuard[T]) Release() {
	s := g.s
	if s == nil {
		panic("seqloq: WriteGuard released twice")
	}
	g.s = nil
	s.seq.EndWrite()
	s.mu.Unlock()
}
