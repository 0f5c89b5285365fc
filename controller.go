package devol

import "github.com/alexwaterman/devol/internal/rand48"

// Worker state flags (spec.md §4.3).
const (
	workerWorking int32 = iota
	workerFinished
)

// cacheLinePad rounds Controller up to 128 bytes (64 bytes of fields plus
// this pad), a whole number of cache lines on common 64-bit targets,
// preventing state writes on one worker's controller from invalidating a
// neighbor's cache line (spec.md §4.2, "Controller fields are padded to a
// whole cache line").
type cacheLinePad [64]byte

// Controller is the per-worker state described in spec.md §3: an assigned
// population slice, an independent PRNG stream, and a back-reference to the
// thread pool (Design Note §9: a non-owning reference, not an ownership
// cycle).
//
//nolint:govet // fieldalignment: padding is intentional cache-line isolation, not an accident.
type Controller struct {
	id int

	// start, stop bound this worker's half-open slice [start, stop).
	start, stop int

	state int32 // atomic: workerWorking | workerFinished
	bucket int  // allocator lane == id

	rng   *rand48.Source
	alloc *Allocator // optional: nil unless Params.BlockSize > 0

	pool *threadPool
	_    cacheLinePad
}

// ID returns this worker's index, also its allocator bucket.
func (c *Controller) ID() int { return c.id }

// Bucket returns the allocator bucket (lane) this worker must use for
// Alloc/Free calls, per the lane discipline in spec.md §4.1.
func (c *Controller) Bucket() int { return c.bucket }

// Float64 draws the next value in [0, 1) from this worker's private PRNG
// stream (spec.md §4.2's devol_rand48 primitive).
func (c *Controller) Float64() float64 {
	return c.rng.Float64()
}

// Intn draws a pseudo-random integer in [0, n) from this worker's stream.
func (c *Controller) Intn(n int) int {
	return c.rng.Intn(n)
}

// Alloc requests a fixed-size block from this worker's own lane of the pool
// allocator. Returns ok=false if the pool has no allocator configured
// (Params.BlockSize == 0) or the lane is exhausted.
func (c *Controller) Alloc() (block []byte, addr int, ok bool) {
	if c.alloc == nil {
		return nil, 0, false
	}
	addr, ok = c.alloc.Alloc(c.bucket)
	if !ok {
		return nil, 0, false
	}
	return c.alloc.Bytes(c.bucket, addr), addr, true
}

// Free releases a block previously returned by Alloc back to this worker's
// lane. Misaligned addresses and double-frees are silently tolerated.
func (c *Controller) Free(addr int) {
	if c.alloc == nil {
		return
	}
	c.alloc.Free(c.bucket, addr)
}

// sliceLen returns stop-start, the number of solutions this worker owns.
func (c *Controller) sliceLen() int {
	return c.stop - c.start
}

// newController builds a controller for worker id owning [start, stop),
// deriving its PRNG stream from seed per the per-index offset rule in
// spec.md §4.2.
func newController(id, start, stop int, seed [3]uint16) *Controller {
	return &Controller{
		id:     id,
		start:  start,
		stop:   stop,
		bucket: id,
		rng:    rand48.New(rand48.Derive(seed, id)),
		state:  workerFinished,
	}
}
