package integration

import (
	"context"
	"testing"

	"github.com/alexwaterman/devol"
	devoltesting "github.com/alexwaterman/devol/testing"
)

func TestMockCallbacksDrivesSequentialPool(t *testing.T) {
	mock := devoltesting.NewMockCallbacks[int](t)
	mock.WithInit(func(_ context.Context, c *devol.Controller) (int, error) {
		return c.Intn(100), nil
	}).WithFitness(func(n int) float64 {
		return float64(n)
	}).WithMutate(func(_ context.Context, c *devol.Controller, p1, p2 int) (int, error) {
		return (p1 + p2) / 2, nil
	})

	pool, err := devol.NewSequentialGenePool(50, devol.Params[int]{
		ReproductionRate: 0.1,
		BreedFitness:     0.2,
		Callbacks:        mock,
		Seed:             [3]uint16{4, 5, 6},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pool.Close()

	devoltesting.AssertInitialized(t, mock, 50)

	for i := 0; i < 10; i++ {
		if err := pool.Iterate(context.Background()); err != nil {
			t.Fatalf("generation %d: %v", i, err)
		}
	}

	_, _, mutate, _, _ := mock.Calls()
	if mutate == 0 {
		t.Error("expected at least one Mutate call across 10 generations")
	}
}

func TestMockCallbacksDrivesSMPPool(t *testing.T) {
	mock := devoltesting.NewMockCallbacks[float64](t)
	mock.WithInit(func(_ context.Context, c *devol.Controller) (float64, error) {
		return c.Float64() * 100, nil
	}).WithFitness(func(x float64) float64 {
		if x < 0 {
			return -x
		}
		return x
	}).WithMutate(func(_ context.Context, c *devol.Controller, p1, p2 float64) (float64, error) {
		return (p1 + p2) / 2, nil
	})

	pool, err := devol.NewGenePool(80, 4, devol.Params[float64]{
		ReproductionRate: 0.15,
		BreedFitness:     0.25,
		Callbacks:        mock,
		Seed:             [3]uint16{1, 1, 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pool.Close()

	for i := 0; i < 5; i++ {
		if err := pool.Iterate(context.Background()); err != nil {
			t.Fatalf("generation %d: %v", i, err)
		}
	}

	devoltesting.AssertInitialized(t, mock, 80)
}

func TestTargetSeekerFixtureConverges(t *testing.T) {
	pool, err := devol.NewSequentialGenePool(80, devol.Params[float64]{
		ReproductionRate: 0.2,
		BreedFitness:     0.3,
		Callbacks:        devoltesting.TargetSeeker(-50, 50, 7),
		Seed:             [3]uint16{9, 9, 9},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer pool.Close()

	before := pool.AverageFitness()
	for i := 0; i < 100; i++ {
		if err := pool.Iterate(context.Background()); err != nil {
			t.Fatalf("generation %d: %v", i, err)
		}
	}
	after := pool.AverageFitness()

	if after >= before {
		t.Errorf("expected TargetSeeker population to converge: before=%v after=%v", before, after)
	}
}
