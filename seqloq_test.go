package seqloq

import (
	"sync"
	"testing"
	"time"
)

func TestSeqloq_Smoke(t *testing.T) {
	s := New(uint32(3))

	if got := Peek(s, func(p *uint32) uint32 { return *p }); got != 3 {
		t.Fatalf("Peek = %d, want 3", got)
	}

	g := s.AcquireWrite()
	if *g.Value() != 3 {
		t.Errorf("guard value = %d, want 3", *g.Value())
	}
	*g.Value() = 4
	g.Release()

	if got := s.Snapshot(); got != 4 {
		t.Errorf("Snapshot after write = %d, want 4", got)
	}
}

func TestSeqloq_SnapshotInitial(t *testing.T) {
	s := New(TestArray{1, 2, 3, 4})
	if got := s.Snapshot(); got != (TestArray{1, 2, 3, 4}) {
		t.Errorf("Snapshot = %v, want initial value", got)
	}
}

func TestSeqloq_Set(t *testing.T) {
	s := New(uint64(0))
	s.Set(42)
	if got := s.Snapshot(); got != 42 {
		t.Errorf("Snapshot after Set = %d, want 42", got)
	}
}

func TestSeqloq_SnapshotWaitsForWriter(t *testing.T) {
	s := New(TestArray{})
	g := s.AcquireWrite()

	done := make(chan TestArray, 1)
	go func() {
		done <- s.Snapshot()
	}()

	// Give the reader time to start spinning on the odd sequence.
	time.Sleep(10 * time.Millisecond)
	for i := range g.Value() {
		g.Value()[i] = 7
	}
	g.Release()

	if got := <-done; got != (TestArray{7, 7, 7, 7}) {
		t.Errorf("Snapshot overlapping write = %v, want {7 7 7 7}", got)
	}
}

func TestSeqloq_WritersSerialize(t *testing.T) {
	s := New(uint64(0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				g := s.AcquireWrite()
				*g.Value()++
				g.Release()
			}
		}()
	}
	wg.Wait()

	if got := s.Snapshot(); got != 8000 {
		t.Errorf("counter = %d, want 8000 (lost writes)", got)
	}
}

func TestSeqloq_ConcurrentSnapshotsConsistent(t *testing.T) {
	s := New(TestArray{})
	stop := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			g := s.AcquireWrite()
			g.Value().Frob(time.Microsecond)
			g.Release()
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				arr := s.Snapshot()
				if n := arr.Check(0); n != 0 {
					t.Errorf("snapshot %v has %d mismatched elements", arr, n)
					return
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestSeqloq_PeekResultDiscardedOnRetry(t *testing.T) {
	s := New(uint64(1))

	// With no writer active, Peek must run f exactly once.
	runs := 0
	got := Peek(s, func(p *uint64) uint64 {
		runs++
		return *p * 10
	})
	if got != 10 {
		t.Errorf("Peek = %d, want 10", got)
	}
	if runs != 1 {
		t.Errorf("callback ran %d times with no contention, want 1", runs)
	}
}

func TestSeqloq_GuardDoubleReleasePanics(t *testing.T) {
	s := New(0)
	g := s.AcquireWrite()
	g.Release()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic from second Release")
		}
	}()
	g.Release()
}

func TestSeqloq_GuardValueAfterReleasePanics(t *testing.T) {
	s := New(0)
	g := s.AcquireWrite()
	g.Release()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic from Value on released guard")
		}
	}()
	g.Value()
}
