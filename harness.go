package seqloq

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadSpec configures one population of harness goroutines.
type ThreadSpec struct {
	// Qty is the number of goroutines to spawn.
	Qty int
	// Steps is how many times each goroutine operates on the lock.
	Steps int
	// Delay is the per-step delay inside the critical section, widening
	// the race window.
	Delay time.Duration
	// Pause is the delay between steps, with no lock held.
	Pause time.Duration
}

// DefaultThreadSpec returns the standard workload: 100 goroutines doing
// 100 steps with a 2µs in-lock delay and a 2ms pause between steps.
func DefaultThreadSpec() ThreadSpec {
	return ThreadSpec{
		Qty:   100,
		Steps: 100,
		Delay: 2 * time.Microsecond,
		Pause: 2 * time.Millisecond,
	}
}

// BenchMode selects which operation the foreground benchmark loop times.
type BenchMode int

const (
	// BenchReader times Check calls.
	BenchReader BenchMode = iota
	// BenchWriter times Frob calls.
	BenchWriter
)

func (m BenchMode) String() string {
	switch m {
	case BenchReader:
		return "reader"
	case BenchWriter:
		return "writer"
	default:
		return fmt.Sprintf("BenchMode(%d)", int(m))
	}
}

// BenchRequest asks ReaderWriterTest to time individual operations from
// the foreground goroutine while the background load runs. Each elapsed
// time is appended to *Samples in nanoseconds.
type BenchRequest struct {
	Mode       BenchMode
	NumSamples int
	Samples    *[]int64
}

type sharedState struct {
	lock         TestableLock
	shutdown     atomic.Bool
	failedChecks atomic.Uint64

	abortMu sync.Mutex
	abort   error
}

func (s *sharedState) recordAbort(v any) {
	s.abortMu.Lock()
	defer s.abortMu.Unlock()
	if s.abort == nil {
		s.abort = fmt.Errorf("%w: panic: %v", ErrAborted, v)
	}
}

func (s *sharedState) abortErr() error {
	s.abortMu.Lock()
	defer s.abortMu.Unlock()
	return s.abort
}

// ReaderWriterTest drives lock with readers.Qty checking goroutines and
// writers.Qty frobbing goroutines. Every nonzero Check return is counted
// as a failed check. If bench is non-nil, the calling goroutine addition-
// ally performs bench.NumSamples timed operations and then signals
// shutdown so the background goroutines exit early.
//
// After all goroutines join, the verdict is taken: with
// expectInconsistency false, any failed check yields ErrInconsistent;
// with it true, the absence of failed checks yields ErrNoInconsistency
// (the harness failed to provoke the torn reads the lock should allow).
// A panic on any harness goroutine is surfaced as ErrAborted.
func ReaderWriterTest(lock TestableLock, readers, writers ThreadSpec, bench *BenchRequest, expectInconsistency bool) error {
	shared := &sharedState{lock: lock}

	var wg sync.WaitGroup
	spawn := func(spec ThreadSpec, writer bool) {
		for i := 0; i < spec.Qty; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						shared.recordAbort(r)
						shared.shutdown.Store(true)
					}
				}()
				for step := 0; step < spec.Steps; step++ {
					if writer {
						shared.lock.Frob(spec.Delay)
					} else if shared.lock.Check(spec.Delay) != 0 {
						shared.failedChecks.Add(1)
					}
					time.Sleep(spec.Pause)
					if shared.shutdown.Load() {
						break
					}
				}
			}()
		}
	}

	spawn(readers, false)
	spawn(writers, true)

	var benchErr error
	if bench != nil {
		benchErr = runBench(shared, bench, readers, writers)
		shared.shutdown.Store(true)
	}

	wg.Wait()

	if err := shared.abortErr(); err != nil {
		return err
	}
	if benchErr != nil {
		return benchErr
	}

	failures := shared.failedChecks.Load()
	if expectInconsistency {
		if failures == 0 {
			return ErrNoInconsistency
		}
		return nil
	}
	if failures > 0 {
		return fmt.Errorf("%w: %d failed checks", ErrInconsistent, failures)
	}
	return nil
}

// runBench performs the foreground timed loop. A nonzero result from a
// timed Check is a correctness failure, not measurement noise, and stops
// the run immediately.
func runBench(shared *sharedState, bench *BenchRequest, readers, writers ThreadSpec) error {
	if bench.Samples == nil {
		return fmt.Errorf("seqloq: BenchRequest.Samples must not be nil")
	}
	for i := 0; i < bench.NumSamples; i++ {
		switch bench.Mode {
		case BenchReader:
			t0 := time.Now()
			n := shared.lock.Check(0)
			elapsed := time.Since(t0)
			if n != 0 {
				return fmt.Errorf("%w: timed check observed %d mismatches", ErrInconsistent, n)
			}
			*bench.Samples = append(*bench.Samples, elapsed.Nanoseconds())
			time.Sleep(readers.Pause)
		case BenchWriter:
			t0 := time.Now()
			shared.lock.Frob(0)
			elapsed := time.Since(t0)
			*bench.Samples = append(*bench.Samples, elapsed.Nanoseconds())
			time.Sleep(writers.Pause)
		default:
			return fmt.Errorf("seqloq: unknown bench mode %d", int(bench.Mode))
		}
	}
	return nil
}
