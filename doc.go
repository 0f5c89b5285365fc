// Package devol provides a parallel evolutionary-search engine: given a
// user-defined candidate representation and three callbacks (initialize,
// evaluate fitness, breed a child from two parents), it maintains a
// population that iteratively improves under selection and variation.
//
// # Overview
//
// devol exposes two execution modes:
//
//   - Sequential: a single goroutine runs the whole population each generation.
//   - SMP: the population is partitioned into per-worker slices, and W
//     goroutines breed and replace within their own slice concurrently.
//
// # Core Concepts
//
//   - GenePool[P]: owns the population and drives generations.
//   - Callbacks[P]: the four (optionally five) user-supplied functions that
//     define a problem: Init, Fitness, Mutate, Destroy, and an optional Swap.
//   - Allocator: a fixed-size-block pool partitioned into per-worker lanes,
//     so Mutate/Init can allocate private state without locking.
//   - Controller: per-worker state (assigned slice, private PRNG stream,
//     and the allocator lane a callback should use).
//
// # Usage Example
//
//	type point struct{ x float64 }
//
//	callbacks := devol.CallbacksFunc[point]{
//	    InitFunc: func(_ context.Context, c *devol.Controller) (point, error) {
//	        return point{x: c.Float64() * 10}, nil
//	    },
//	    FitnessFunc: func(p point) float64 {
//	        return math.Abs(p.x*p.x - 5)
//	    },
//	    MutateFunc: func(_ context.Context, c *devol.Controller, p1, p2 point) (point, error) {
//	        base := p1.x
//	        if math.Abs(p2.x*p2.x-5) < math.Abs(p1.x*p1.x-5) {
//	            base = p2.x
//	        }
//	        return point{x: base + (c.Float64()-0.5)*0.0005}, nil
//	    },
//	}
//
//	pool, err := devol.NewSequentialGenePool(200, devol.Params[point]{
//	    ReproductionRate: 0.01,
//	    BreedFitness:     0.01,
//	    Callbacks:        callbacks,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	for i := 0; i < 500; i++ {
//	    if err := pool.Iterate(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Observability
//
// GenePool emits capitan signals for generation boundaries, worker gate
// transitions, dispersal, and pool close (the allocator signal constants are
// declared but not emitted); exposes a metricz.Registry and a
// tracez.Tracer for counters/gauges and per-generation spans; and lets
// callers subscribe to per-generation completion via hookz.
//
// # Concurrency model
//
// Within a worker's slice, evaluate -> sort -> breed/replace is strictly
// sequential. Across workers, the driver guarantees no worker observes
// generation g+1 until every worker has finished g, and no worker begins
// g+1 until the driver has observed every worker's g completion. See the
// barrier protocol in threadpool.go for the exact handshake.
package devol
