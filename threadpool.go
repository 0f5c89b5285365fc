package devol

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// defaultSpinInterval bounds how long a gate spin-wait sleeps between polls.
// spec.md §4.3's "Design note on spin-waits" calls for a short, sub-
// millisecond yield; clockz makes that duration swappable under a fake
// clock in tests instead of a bare time.Sleep.
const defaultSpinInterval = 50 * time.Microsecond

// threadPool owns the worker controllers and implements the barrier
// protocol described in spec.md §4.3: the driver releases all workers by
// unlocking syncLock, observes every controller reach the "working" state,
// re-locks syncLock and flips termReady, then observes every controller
// reach "finished" before returning control to the caller.
type threadPool struct {
	controllers []*Controller

	syncLock  sync.Mutex
	termReady atomic.Bool

	// currentCtx is written by the driver before unlocking syncLock and
	// read by each worker only after passing through the gate; the mutex's
	// Lock/Unlock pair establishes the happens-before edge, so no separate
	// synchronization is needed for this field.
	currentCtx context.Context

	// runGeneration is the per-worker algorithm (fitness sweep, sort,
	// breed & replace) supplied by the GenePool that owns this pool.
	runGeneration func(ctx context.Context, c *Controller) error

	// genErr collects the first callback error reported by any worker in
	// the current generation.
	genErrMu sync.Mutex
	genErr   error

	clock        clockz.Clock
	spinInterval time.Duration

	wg       sync.WaitGroup
	dieOnce  sync.Once
	dieCh    chan struct{}
}

// newThreadPool partitions [0, solutions) across threads workers (the last
// worker absorbing the remainder, spec.md §4.3/§8 invariant 1), spawns one
// goroutine per worker, and returns with syncLock held by the caller; the
// pool must be released via the first Iterate call.
func newThreadPool(solutions, threads int, seed [3]uint16, clock clockz.Clock, run func(context.Context, *Controller) error) *threadPool {
	controllers := make([]*Controller, threads)
	blockSize := solutions / threads
	start := 0
	for i := 0; i < threads; i++ {
		stop := start + blockSize
		if i == threads-1 {
			stop = solutions // last worker absorbs N mod W leftovers.
		}
		controllers[i] = newController(i, start, stop, seed)
		start = stop
	}

	tp := &threadPool{
		controllers:   controllers,
		clock:         clock,
		spinInterval:  defaultSpinInterval,
		runGeneration: run,
		dieCh:         make(chan struct{}),
	}
	tp.controllers[0].pool = tp
	for _, c := range controllers {
		c.pool = tp
	}

	// The driver holds syncLock until the first Iterate call, so workers
	// immediately block at their entry gate (spec.md §4.3).
	tp.syncLock.Lock()

	tp.wg.Add(threads)
	for _, c := range controllers {
		go tp.workerMain(c)
	}

	return tp
}

// workerMain is the body of one worker goroutine. It mirrors
// _devol_thread_main in the C source: an entry gate, the generation work,
// a busy-wait on termReady, an exit gate, and a die check, looping forever
// until told to terminate.
func (tp *threadPool) workerMain(c *Controller) {
	defer tp.wg.Done()

	for {
		// Entry gate: block until the driver releases syncLock.
		tp.syncLock.Lock()
		ctx := tp.currentCtx
		tp.syncLock.Unlock()

		select {
		case <-tp.dieCh:
			return
		default:
		}

		atomic.StoreInt32(&c.state, workerWorking)
		capitan.Info(ctx, SignalWorkerGateEntered,
			FieldWorkerID.Field(c.id),
		)

		if err := tp.runGeneration(ctx, c); err != nil {
			tp.reportError(err)
		}

		// Wait for the driver to have observed every worker "working"
		// before letting this worker announce "finished" (spec.md §4.3's
		// term_ready handshake, preventing a worker from completing a
		// generation before the driver has counted its arrival).
		for !tp.termReady.Load() {
			select {
			case <-tp.clock.After(tp.spinInterval):
			case <-tp.dieCh:
				return
			}
		}

		atomic.StoreInt32(&c.state, workerFinished)
		capitan.Info(ctx, SignalWorkerGateExited,
			FieldWorkerID.Field(c.id),
		)

		// Exit gate: announce completion by taking and releasing syncLock.
		// The driver re-locked it before flipping termReady and keeps it
		// after runGate returns; this Lock() succeeds once the next runGate
		// (or close) unlocks it, and we loop.
		tp.syncLock.Lock()
		die := tp.dying()
		tp.syncLock.Unlock()

		if die {
			return
		}
	}
}

func (tp *threadPool) dying() bool {
	select {
	case <-tp.dieCh:
		return true
	default:
		return false
	}
}

func (tp *threadPool) reportError(err error) {
	tp.genErrMu.Lock()
	defer tp.genErrMu.Unlock()
	if tp.genErr == nil {
		tp.genErr = err
	}
}

// runGate executes exactly one generation across all workers, implementing
// the driver side of the barrier protocol (spec.md §4.3 steps 1-5).
func (tp *threadPool) runGate(ctx context.Context) error {
	tp.genErrMu.Lock()
	tp.genErr = nil
	tp.genErrMu.Unlock()

	tp.termReady.Store(false)
	tp.currentCtx = ctx

	// Release the hounds.
	tp.syncLock.Unlock()

	if err := tp.waitForState(workerWorking); err != nil {
		return err
	}

	// Re-acquire and announce that workers may finish.
	tp.syncLock.Lock()
	tp.termReady.Store(true)

	if err := tp.waitForState(workerFinished); err != nil {
		return err
	}

	tp.genErrMu.Lock()
	err := tp.genErr
	tp.genErrMu.Unlock()
	return err
}

// waitForState spin-waits until every controller reports the target state,
// or the pool is closed (dieCh). It polls with short clock sleeps, matching
// the C driver's usleep-based polling loop; runGate calls it without
// syncLock for the "working" wait and with syncLock held for the "finished"
// wait.
func (tp *threadPool) waitForState(target int32) error {
	for {
		allDone := true
		for _, c := range tp.controllers {
			if atomic.LoadInt32(&c.state) != target {
				allDone = false
				break
			}
		}
		if allDone {
			return nil
		}
		select {
		case <-tp.clock.After(tp.spinInterval):
		case <-tp.dieCh:
			return nil
		}
	}
}

// close tears down the pool: closes the shared dieCh, releases the
// lock workers are blocked on, and joins every worker goroutine. Must be
// called with syncLock held by the caller (true at all times outside of a
// runGate call), matching the C contract on thread_pool_destroy.
func (tp *threadPool) close() {
	tp.dieOnce.Do(func() {
		close(tp.dieCh)
	})
	tp.syncLock.Unlock()
	tp.wg.Wait()
}
