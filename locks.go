package seqloq

import (
	"sync"
	"time"
)

// TestableLock is the contract the contention harness drives. Check
// verifies the protected payload is internally consistent and returns the
// number of mismatches observed; Frob mutates the payload, leaving it
// consistent again once it returns. Both take the per-step delay that
// widens the race window inside the critical section.
type TestableLock interface {
	Check(delay time.Duration) int
	Frob(delay time.Duration)
}

// MutexLock guards a TestArray with a plain sync.Mutex. Readers and
// writers all serialize on the one lock.
type MutexLock struct {
	mu  sync.Mutex
	arr TestArray
}

func NewMutexLock() *MutexLock { return &MutexLock{} }

func (m *MutexLock) Check(delay time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arr.Check(delay)
}

func (m *MutexLock) Frob(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arr.Frob(delay)
}

// RWMutexLock guards a TestArray with a sync.RWMutex. Readers share the
// lock; writers take it exclusively.
type RWMutexLock struct {
	mu  sync.RWMutex
	arr TestArray
}

func NewRWMutexLock() *RWMutexLock { return &RWMutexLock{} }

func (m *RWMutexLock) Check(delay time.Duration) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.arr.Check(delay)
}

func (m *RWMutexLock) Frob(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arr.Frob(delay)
}

// SnapshotLock guards a TestArray with a Seqloq and reads it through
// Snapshot: the checker works on a private consistent copy.
type SnapshotLock struct {
	s *Seqloq[TestArray]
}

func NewSnapshotLock() *SnapshotLock {
	return &SnapshotLock{s: New(TestArray{})}
}

func (l *SnapshotLock) Check(delay time.Duration) int {
	arr := l.s.Snapshot()
	return arr.Check(delay)
}

func (l *SnapshotLock) Frob(delay time.Duration) {
	g := l.s.AcquireWrite()
	defer g.Release()
	g.Value().Frob(delay)
}

// PeekLock guards a TestArray with a Seqloq and reads it through Peek:
// the checker runs in place against the shared payload and relies on the
// sequence counter to discard torn runs.
type PeekLock struct {
	s *Seqloq[TestArray]
}

func NewPeekLock() *PeekLock {
	return &PeekLock{s: New(TestArray{})}
}

func (l *PeekLock) Check(delay time.Duration) int {
	return Peek(l.s, func(a *TestArray) int {
		return a.Check(delay)
	})
}

func (l *PeekLock) Frob(delay time.Duration) {
	g := l.s.AcquireWrite()
	defer g.Release()
	g.Value().Frob(delay)
}

// BogusLock applies no synchronization at all. It exists so the harness
// can prove to itself that it detects inconsistency: under contention its
// Check must report mismatches.
type BogusLock struct {
	arr TestArray
}

func NewBogusLock() *BogusLock { return &BogusLock{} }

func (b *BogusLock) Check(delay time.Duration) int {
	return b.arr.Check(delay)
}

func (b *BogusLock) Frob(delay time.Duration) {
	b.arr.Frob(delay)
}
