// Package testing provides test utilities and fixtures for devol-based
// applications: a ready-made numeric Callbacks implementation for quick
// population tests, and a configurable mock for asserting exactly which
// callback methods a gene pool invoked and how often.
//
// Example usage:
//
//	func TestMyPool(t *testing.T) {
//		mock := devoltesting.NewMockCallbacks[int](t)
//		mock.WithFitness(func(n int) float64 { return float64(n) })
//
//		pool, err := devol.NewSequentialGenePool(50, devol.Params[int]{
//			ReproductionRate: 0.1,
//			BreedFitness:     0.2,
//			Callbacks:        mock,
//		})
//		if err != nil {
//			t.Fatalf("unexpected error: %v", err)
//		}
//		_ = pool.Iterate(context.Background())
//		devoltesting.AssertBred(t, mock, 5)
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alexwaterman/devol"
)

// MockCallbacks is a configurable devol.Callbacks[P] implementation that
// records every call it receives: construct one, wire in only the funcs a
// test cares about, and assert against its call counters afterward.
type MockCallbacks[P any] struct {
	t *testing.T

	mu sync.Mutex

	initFunc    func(ctx context.Context, c *devol.Controller) (P, error)
	fitnessFunc func(p P) float64
	mutateFunc  func(ctx context.Context, c *devol.Controller, p1, p2 P) (P, error)
	destroyFunc func(c *devol.Controller, p P)
	swapFunc    func(left, right P) (P, P)

	initCalls    int
	fitnessCalls int
	mutateCalls  int
	destroyCalls int
	swapCalls    int
}

// NewMockCallbacks returns a MockCallbacks whose Init returns the zero value
// of P and whose Fitness returns 0 until overridden, enough to exercise the
// engine's control flow without a real problem domain.
func NewMockCallbacks[P any](t *testing.T) *MockCallbacks[P] {
	return &MockCallbacks[P]{t: t}
}

// WithInit sets the Init implementation and returns the receiver for chaining.
func (m *MockCallbacks[P]) WithInit(fn func(ctx context.Context, c *devol.Controller) (P, error)) *MockCallbacks[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initFunc = fn
	return m
}

// WithFitness sets the Fitness implementation and returns the receiver for chaining.
func (m *MockCallbacks[P]) WithFitness(fn func(p P) float64) *MockCallbacks[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fitnessFunc = fn
	return m
}

// WithMutate sets the Mutate implementation and returns the receiver for chaining.
func (m *MockCallbacks[P]) WithMutate(fn func(ctx context.Context, c *devol.Controller, p1, p2 P) (P, error)) *MockCallbacks[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutateFunc = fn
	return m
}

// WithDestroy sets the Destroy implementation and returns the receiver for chaining.
func (m *MockCallbacks[P]) WithDestroy(fn func(c *devol.Controller, p P)) *MockCallbacks[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyFunc = fn
	return m
}

// WithSwap sets the Swap implementation and returns the receiver for chaining.
func (m *MockCallbacks[P]) WithSwap(fn func(left, right P) (P, P)) *MockCallbacks[P] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapFunc = fn
	return m
}

func (m *MockCallbacks[P]) Init(ctx context.Context, c *devol.Controller) (P, error) {
	m.mu.Lock()
	m.initCalls++
	fn := m.initFunc
	m.mu.Unlock()

	var zero P
	if fn == nil {
		return zero, nil
	}
	return fn(ctx, c)
}

func (m *MockCallbacks[P]) Fitness(p P) float64 {
	m.mu.Lock()
	m.fitnessCalls++
	fn := m.fitnessFunc
	m.mu.Unlock()

	if fn == nil {
		return 0
	}
	return fn(p)
}

func (m *MockCallbacks[P]) Mutate(ctx context.Context, c *devol.Controller, p1, p2 P) (P, error) {
	m.mu.Lock()
	m.mutateCalls++
	fn := m.mutateFunc
	m.mu.Unlock()

	if fn == nil {
		return p1, nil
	}
	return fn(ctx, c, p1, p2)
}

func (m *MockCallbacks[P]) Destroy(c *devol.Controller, p P) {
	m.mu.Lock()
	m.destroyCalls++
	fn := m.destroyFunc
	m.mu.Unlock()

	if fn != nil {
		fn(c, p)
	}
}

func (m *MockCallbacks[P]) Swap(left, right P) (P, P) {
	m.mu.Lock()
	m.swapCalls++
	fn := m.swapFunc
	m.mu.Unlock()

	if fn == nil {
		return right, left
	}
	return fn(left, right)
}

// Calls returns the current call counts (init, fitness, mutate, destroy, swap).
func (m *MockCallbacks[P]) Calls() (init, fitness, mutate, destroy, swap int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls, m.fitnessCalls, m.mutateCalls, m.destroyCalls, m.swapCalls
}

// AssertBred fails the test unless Mutate was called exactly expected times.
func AssertBred[P any](t *testing.T, m *MockCallbacks[P], expected int) {
	t.Helper()
	_, _, mutate, _, _ := m.Calls()
	if mutate != expected {
		t.Errorf("expected %d Mutate calls, got %d", expected, mutate)
	}
}

// AssertInitialized fails the test unless Init was called exactly expected times.
func AssertInitialized[P any](t *testing.T, m *MockCallbacks[P], expected int) {
	t.Helper()
	init, _, _, _, _ := m.Calls()
	if init != expected {
		t.Errorf("expected %d Init calls, got %d", expected, init)
	}
}

// TargetSeeker builds a ready-to-use devol.Callbacks[float64] fixture: Init
// draws a uniform value in [lo, hi), Fitness is the distance from target,
// and Mutate nudges the fitter parent by a small random step. Useful as a
// minimal, always-improving problem for tests that only care about the
// engine's mechanics, not a specific domain.
func TargetSeeker(lo, hi, target float64) devol.Callbacks[float64] {
	span := hi - lo
	return devol.CallbacksFunc[float64]{
		InitFunc: func(_ context.Context, c *devol.Controller) (float64, error) {
			return lo + c.Float64()*span, nil
		},
		FitnessFunc: func(x float64) float64 {
			d := x - target
			if d < 0 {
				d = -d
			}
			return d
		},
		MutateFunc: func(_ context.Context, c *devol.Controller, p1, p2 float64) (float64, error) {
			base := p1
			if abs(p2-target) < abs(p1-target) {
				base = p2
			}
			step := (c.Float64() - 0.5) * span * 0.01
			return base + step, nil
		},
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// FailingMutate returns a Mutate func that always errors, wrapped with a
// label so table-driven tests can distinguish failure injection sites.
func FailingMutate[P any](label string) func(ctx context.Context, c *devol.Controller, p1, p2 P) (P, error) {
	return func(_ context.Context, _ *devol.Controller, p1, _ P) (P, error) {
		return p1, fmt.Errorf("devoltesting: induced failure at %s", label)
	}
}
