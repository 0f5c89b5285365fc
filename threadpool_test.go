package devol

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/zoobzio/clockz"
)

func TestThreadPoolPartitioning(t *testing.T) {
	tp := newThreadPool(10, 3, [3]uint16{1, 2, 3}, clockz.RealClock, func(context.Context, *Controller) error { return nil })
	defer tp.close()

	want := [][2]int{{0, 3}, {3, 6}, {6, 10}} // last worker absorbs the remainder
	for i, c := range tp.controllers {
		if c.start != want[i][0] || c.stop != want[i][1] {
			t.Errorf("worker %d: expected [%d, %d), got [%d, %d)", i, want[i][0], want[i][1], c.start, c.stop)
		}
	}
}

func TestThreadPoolRunGate(t *testing.T) {
	var calls int32
	tp := newThreadPool(12, 4, [3]uint16{1, 2, 3}, clockz.RealClock, func(_ context.Context, c *Controller) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	defer tp.close()

	for gen := 0; gen < 5; gen++ {
		if err := tp.runGate(context.Background()); err != nil {
			t.Fatalf("generation %d: unexpected error: %v", gen, err)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 20 {
		t.Errorf("expected 4 workers x 5 generations = 20 calls, got %d", got)
	}
}

func TestThreadPoolPropagatesWorkerError(t *testing.T) {
	sentinel := &CallbackError{Path: []string{"worker-0", "mutate"}}
	tp := newThreadPool(8, 2, [3]uint16{1, 2, 3}, clockz.RealClock, func(_ context.Context, c *Controller) error {
		if c.ID() == 0 {
			return sentinel
		}
		return nil
	})
	defer tp.close()

	err := tp.runGate(context.Background())
	if err != sentinel {
		t.Errorf("expected the worker's reported error to propagate, got %v", err)
	}
}

func TestThreadPoolClose(t *testing.T) {
	tp := newThreadPool(6, 2, [3]uint16{1, 2, 3}, clockz.RealClock, func(context.Context, *Controller) error { return nil })

	if err := tp.runGate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		tp.close()
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done // close must return once every worker goroutine has exited.
}
