package devol

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"

	"github.com/alexwaterman/devol/internal/rand48"
)

// Observability keys for the gene pool's own generation span/metrics,
// matching the const-block-per-connector style the rest of the stack uses.
const (
	MetricGenerationsTotal  = metricz.Key("genepool.generations.total")
	MetricChildrenBredTotal = metricz.Key("genepool.children_bred.total")
	MetricAvgFitness        = metricz.Key("genepool.avg_fitness")

	SpanGeneration = tracez.Key("genepool.generation")

	TagGeneration = tracez.Tag("genepool.generation")
)

// EventGenerationComplete is the hookz key callers subscribe to via
// GenePool.OnGeneration, fired once per completed Iterate call.
const EventGenerationComplete = hookz.Key("genepool.generation-complete")

// GenerationEvent is delivered to hookz subscribers after each generation.
type GenerationEvent struct {
	Generation  int
	Duration    time.Duration
	AvgFitness  float64
	WorkerCount int
}

type poolMode int

const (
	modeSequential poolMode = iota
	modeSMP
)

// GenePool owns the population array and the algorithm parameters
// (spec.md §2's GP component). It dispatches one generation either by
// driving a threadPool (SMP) or by running a single in-line generation
// (sequential).
type GenePool[P any] struct {
	mu sync.Mutex

	mode   poolMode
	params Params[P]

	solutions []Solution[P]

	// SMP mode only.
	pool *threadPool

	// Sequential mode only: a single pseudo-controller owning the whole
	// population (spec.md §4.5).
	seqController *Controller

	allocator *Allocator

	dispersalRNG *rand48.Source

	clock   clockz.Clock
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[GenerationEvent]

	generation int
	closed     bool
}

// NewGenePool creates a population of n solutions, starts w worker
// goroutines, and runs Init for every slot (spec.md §6). n must be >= w
// >= 1.
func NewGenePool[P any](n, w int, params Params[P]) (*GenePool[P], error) {
	if w < 1 {
		return nil, &ConfigError{Field: "workers", Reason: "must be >= 1"}
	}
	if n < w {
		return nil, &ConfigError{Field: "solutions", Reason: "must be >= workers"}
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	gp := &GenePool[P]{
		mode:      modeSMP,
		params:    params,
		solutions: make([]Solution[P], n),
		clock:     clockz.RealClock,
	}
	gp.initObservability()
	gp.dispersalRNG = rand48.New(params.Seed)

	gp.pool = newThreadPool(n, w, params.Seed, gp.clock, gp.runSliceGeneration)
	gp.wireAllocator(w)

	if err := gp.initAll(context.Background(), gp.pool.controllers); err != nil {
		gp.pool.close()
		return nil, err
	}

	return gp, nil
}

// NewSequentialGenePool creates a population of n solutions with a single
// pseudo-controller and no worker threads (spec.md §4.5).
func NewSequentialGenePool[P any](n int, params Params[P]) (*GenePool[P], error) {
	if n < 1 {
		return nil, &ConfigError{Field: "solutions", Reason: "must be >= 1"}
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	gp := &GenePool[P]{
		mode:      modeSequential,
		params:    params,
		solutions: make([]Solution[P], n),
		clock:     clockz.RealClock,
	}
	gp.initObservability()
	gp.dispersalRNG = rand48.New(params.Seed)
	gp.seqController = newController(0, 0, n, params.Seed)
	gp.wireAllocator(1)

	if err := gp.initAll(context.Background(), []*Controller{gp.seqController}); err != nil {
		return nil, err
	}

	return gp, nil
}

func (gp *GenePool[P]) initObservability() {
	registry := metricz.New()
	registry.Counter(MetricGenerationsTotal)
	registry.Counter(MetricChildrenBredTotal)
	registry.Gauge(MetricAvgFitness)

	gp.metrics = registry
	gp.tracer = tracez.New()
	gp.hooks = hookz.New[GenerationEvent]()
}

func (gp *GenePool[P]) wireAllocator(buckets int) {
	if gp.params.BlockSize <= 0 {
		return
	}
	elems := gp.params.BlockElems
	if elems <= 0 {
		elems = len(gp.solutions)
	}
	alloc, err := NewAllocator(buckets, gp.params.BlockSize, elems)
	if err != nil {
		// BlockSize is positive here and elems was defaulted when
		// non-positive; a construction failure here can only mean the caller
		// passed a zero buckets count, which NewGenePool/NewSequentialGenePool
		// never do.
		return
	}
	gp.allocator = alloc
	for _, c := range gp.controllers() {
		c.alloc = alloc
	}
}

func (gp *GenePool[P]) controllers() []*Controller {
	if gp.mode == modeSMP {
		return gp.pool.controllers
	}
	return []*Controller{gp.seqController}
}

// initAll runs Callbacks.Init for every slot of every controller's slice,
// assigning each new solution's owning controller (spec.md §3's cont
// invariant). Run once, sequentially, from the driver before any generation
// starts: init is setup, not a parallel generation step.
func (gp *GenePool[P]) initAll(ctx context.Context, controllers []*Controller) error {
	for _, c := range controllers {
		for i := c.start; i < c.stop; i++ {
			payload, err := gp.params.Callbacks.Init(ctx, c)
			if err != nil {
				return &CallbackError{Err: err, Path: []string{fmt.Sprintf("worker-%d", c.id), "init"}, Timestamp: gp.clock.Now()}
			}
			gp.solutions[i] = Solution[P]{Payload: payload, cont: c}
		}
	}
	return nil
}

// SetParams replaces the pool's parameters and callback set. Per spec.md
// §6 this is only valid between generations; callers must not invoke it
// concurrently with Iterate.
func (gp *GenePool[P]) SetParams(params Params[P]) error {
	if err := params.validate(); err != nil {
		return err
	}
	gp.mu.Lock()
	defer gp.mu.Unlock()
	gp.params = params
	return nil
}

// Iterate runs exactly one generation: per-worker fitness sweep, sort,
// breed & replace (driven across the thread pool in SMP mode, or in-line in
// sequential mode), followed by dispersal (spec.md §4.6).
func (gp *GenePool[P]) Iterate(ctx context.Context) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gp.generation++
	start := gp.clock.Now()

	ctx, span := gp.tracer.StartSpan(ctx, SpanGeneration)
	span.SetTag(TagGeneration, fmt.Sprintf("%d", gp.generation))
	defer span.Finish()

	capitan.Info(ctx, SignalGenerationStarted, FieldGeneration.Field(gp.generation))

	var err error
	if gp.mode == modeSMP {
		err = gp.pool.runGate(ctx)
	} else {
		err = gp.runSliceGeneration(ctx, gp.seqController)
	}
	if err != nil {
		return err
	}

	gp.disperse(ctx)

	// Bred children were stored with a zero FitnessVal, and dispersal just
	// moved payloads across indices, so the only correct average here is a
	// fresh re-evaluation of the whole population, not the pre-breed sweep.
	avg := gp.averageFitnessLocked()
	duration := gp.clock.Now().Sub(start)

	gp.metrics.Counter(MetricGenerationsTotal).Inc()
	gp.metrics.Gauge(MetricAvgFitness).Set(avg)

	capitan.Info(ctx, SignalGenerationFinished,
		FieldGeneration.Field(gp.generation),
		FieldAvgFitness.Field(avg),
		FieldDuration.Field(duration.Seconds()),
	)

	_ = gp.hooks.Emit(ctx, EventGenerationComplete, GenerationEvent{ //nolint:errcheck
		Generation:  gp.generation,
		Duration:    duration,
		AvgFitness:  avg,
		WorkerCount: len(gp.controllers()),
	})

	return nil
}

// OnGeneration registers a handler for per-generation completion events.
// The handler is called asynchronously after each generation finishes.
func (gp *GenePool[P]) OnGeneration(handler func(context.Context, GenerationEvent) error) error {
	_, err := gp.hooks.Hook(EventGenerationComplete, handler)
	return err
}

// Metrics exposes the pool's metricz registry.
func (gp *GenePool[P]) Metrics() *metricz.Registry { return gp.metrics }

// Tracer exposes the pool's tracez tracer.
func (gp *GenePool[P]) Tracer() *tracez.Tracer { return gp.tracer }

// Allocator exposes the block allocator backing this pool's lanes, or nil
// if Params.BlockSize was left at 0.
func (gp *GenePool[P]) Allocator() *Allocator { return gp.allocator }

// Len returns the population size.
func (gp *GenePool[P]) Len() int { return len(gp.solutions) }

// runSliceGeneration is the per-worker algorithm from spec.md §4.4, shared
// verbatim between SMP workers and the sequential pseudo-controller
// (spec.md §4.5: "identical correctness constraints apply").
func (gp *GenePool[P]) runSliceGeneration(ctx context.Context, c *Controller) error {
	start, stop := c.start, c.stop
	sliceSize := stop - start
	if sliceSize == 0 {
		return nil
	}

	breedWindow := int(gp.params.BreedFitness * float64(sliceSize))
	if breedWindow < 1 {
		breedWindow = 1 // spec.md §4.4 edge case: breed_window==1 allows p1=p2=0.
	}
	reproduce := int(gp.params.ReproductionRate * float64(sliceSize))

	// 1. Fitness sweep.
	for i := start; i < stop; i++ {
		gp.solutions[i].FitnessVal = gp.params.Callbacks.Fitness(gp.solutions[i].Payload)
	}

	// 2. Local sort ascending by fitness (smaller is better).
	slice := gp.solutions[start:stop]
	sort.Slice(slice, func(i, j int) bool {
		return slice[i].FitnessVal < slice[j].FitnessVal
	})

	if reproduce == 0 {
		return nil // "evaluate and sort" only (spec.md §4.4 edge case).
	}

	// 3. Breed & replace.
	for i := 0; i < reproduce; i++ {
		p1Idx, p2Idx := 0, 0
		if breedWindow > 1 {
			p1Idx = c.Intn(breedWindow)
			for {
				p2Idx = c.Intn(breedWindow)
				if p2Idx != p1Idx {
					break
				}
			}
		}

		p1 := slice[p1Idx].Payload
		p2 := slice[p2Idx].Payload

		child, err := gp.params.Callbacks.Mutate(ctx, c, p1, p2)
		if err != nil {
			return &CallbackError{
				Err:        err,
				Path:       []string{fmt.Sprintf("worker-%d", c.id), "mutate"},
				Generation: gp.generation,
				Timestamp:  gp.clock.Now(),
			}
		}

		victim := stop - 1 - (i % breedWindow)
		if victim < start {
			victim = start
		}

		gp.params.Callbacks.Destroy(c, gp.solutions[victim].Payload)
		gp.solutions[victim] = Solution[P]{Payload: child, cont: c}
	}

	gp.metrics.Counter(MetricChildrenBredTotal).Add(float64(reproduce))

	return nil
}

// disperse performs the cross-slice mixing described in spec.md §4.6,
// resolving the Open Question per SPEC_FULL.md: floor(d*N) random index
// pairs are chosen and their payloads swapped via Callbacks.Swap.
func (gp *GenePool[P]) disperse(ctx context.Context) {
	n := len(gp.solutions)
	pairs := int(gp.params.GeneDispersalFactor * float64(n))
	if pairs <= 0 || n < 2 {
		return
	}

	for k := 0; k < pairs; k++ {
		i := gp.dispersalRNG.Intn(n)
		j := gp.dispersalRNG.Intn(n)
		for j == i {
			j = gp.dispersalRNG.Intn(n)
		}
		left, right := gp.params.Callbacks.Swap(gp.solutions[i].Payload, gp.solutions[j].Payload)
		gp.solutions[i].Payload, gp.solutions[j].Payload = left, right
	}

	capitan.Info(ctx, SignalDispersalPerformed, FieldPairsSwapped.Field(pairs))
}

// averageFitnessLocked re-evaluates Fitness for every slot and returns the
// mean. Callers must already hold gp.mu.
func (gp *GenePool[P]) averageFitnessLocked() float64 {
	if len(gp.solutions) == 0 {
		return 0
	}
	var total float64
	for i := range gp.solutions {
		gp.solutions[i].FitnessVal = gp.params.Callbacks.Fitness(gp.solutions[i].Payload)
		total += gp.solutions[i].FitnessVal
	}
	return total / float64(len(gp.solutions))
}

// AverageFitness re-evaluates Fitness for every slot and returns the mean
// (spec.md §6's gene_pool_avg_fitness).
func (gp *GenePool[P]) AverageFitness() float64 {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	return gp.averageFitnessLocked()
}

// Fitnesses re-evaluates Fitness for every slot and returns the per-slot
// values, the structured replacement for gene_pool_display_fitnesses'
// printf dump (spec.md §6 / Design Notes' accessor-over-printf guidance).
func (gp *GenePool[P]) Fitnesses() []float64 {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	out := make([]float64, len(gp.solutions))
	for i := range gp.solutions {
		gp.solutions[i].FitnessVal = gp.params.Callbacks.Fitness(gp.solutions[i].Payload)
		out[i] = gp.solutions[i].FitnessVal
	}
	return out
}

// Solutions returns a snapshot copy of the current population payloads.
// Intended for inspection between generations, not for mutation.
func (gp *GenePool[P]) Solutions() []P {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	out := make([]P, len(gp.solutions))
	for i := range gp.solutions {
		out[i] = gp.solutions[i].Payload
	}
	return out
}

// Close tears down the pool: destroys every solution's payload and, in SMP
// mode, terminates all worker goroutines via the thread pool's die flag
// (spec.md §4.3 teardown).
func (gp *GenePool[P]) Close() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return nil
	}
	gp.closed = true

	for i := range gp.solutions {
		gp.params.Callbacks.Destroy(gp.solutions[i].cont, gp.solutions[i].Payload)
	}

	if gp.mode == modeSMP {
		gp.pool.close()
	}

	if gp.tracer != nil {
		gp.tracer.Close()
	}
	gp.hooks.Close()

	capitan.Info(context.Background(), SignalPoolClosed, FieldPopulation.Field(len(gp.solutions)))
	return nil
}
