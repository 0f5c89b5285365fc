// Command rootfinder finds real roots of a user-supplied polynomial by
// evolving candidate x values under devol's evolutionary search engine.
// Fitness is |p(x)|; a solution of fitness 0 is an exact root.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexwaterman/devol"
)

var (
	coeffs        []float64
	xMin          float64
	xMax          float64
	popSize       int
	repRate       float64
	breedFitness  float64
	maxIter       int
	variance      float64
	seedFlag      string
	converge      bool
	verbose       bool

	rootCmd = &cobra.Command{
		Use:   "rootfinder",
		Short: "Find polynomial roots by evolutionary search",
		Long: `rootfinder evolves a population of candidate x values toward the
real roots of a polynomial a0 + a1*x + a2*x^2 + ... + an*x^n, using devol's
sequential gene pool.`,
		RunE: run,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.Float64SliceVar(&coeffs, "coeff", nil, "polynomial coefficients a0,a1,...,an (required)")
	flags.Float64Var(&xMin, "x-min", -1.0, "minimum starting search bound")
	flags.Float64Var(&xMax, "x-max", 1.0, "maximum starting search bound")
	flags.IntVar(&popSize, "pop-size", 100, "population size")
	flags.Float64Var(&repRate, "rep-rate", 0.25, "reproduction rate")
	flags.Float64Var(&breedFitness, "breed-fitness", 0.25, "fraction of the population allowed to breed")
	flags.IntVar(&maxIter, "max-iter", 100, "maximum iterations")
	flags.Float64Var(&variance, "variance", 0.001, "how much to vary a solution when it is bred")
	flags.StringVar(&seedFlag, "seed", "7,20,1969", "3 comma-separated uint16 seed values")
	flags.BoolVar(&converge, "converge", false, "terminate early once average fitness falls below variance")
	flags.BoolVar(&verbose, "verbose", false, "print every solution at the start and end of the run")
}

func run(_ *cobra.Command, _ []string) error {
	if len(coeffs) < 1 {
		return fmt.Errorf("rootfinder: you must specify some coefficients via --coeff")
	}

	seed, err := parseSeed(seedFlag)
	if err != nil {
		return err
	}

	span := xMax - xMin
	callbacks := devol.CallbacksFunc[float64]{
		InitFunc: func(_ context.Context, c *devol.Controller) (float64, error) {
			return xMin + c.Float64()*span, nil
		},
		FitnessFunc: func(x float64) float64 {
			return math.Abs(evalPolynomial(coeffs, x))
		},
		MutateFunc: func(_ context.Context, c *devol.Controller, p1, p2 float64) (float64, error) {
			base := p1
			if math.Abs(evalPolynomial(coeffs, p2)) < math.Abs(evalPolynomial(coeffs, p1)) {
				base = p2
			}
			return base + c.Float64()*variance - variance/2, nil
		},
	}

	pool, err := devol.NewSequentialGenePool(popSize, devol.Params[float64]{
		ReproductionRate: repRate,
		BreedFitness:     breedFitness,
		Callbacks:        callbacks,
		Seed:             seed,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	fmt.Printf("Solving polynomial with coefficients: %v\n", coeffs)
	fmt.Printf("Population size:        %d\n", popSize)
	fmt.Printf("Solution variance:      %v\n", variance)
	fmt.Printf("Initial solution range: [%v, %v]\n", xMin, xMax)
	fmt.Printf("Maximum iterations:     %d\n", maxIter)

	if verbose {
		printFitnesses(pool, "Initial population")
	}

	iterations := 0
	for iterations < maxIter {
		iterations++
		if err := pool.Iterate(context.Background()); err != nil {
			return err
		}

		if converge {
			avg := pool.AverageFitness()
			if avg <= variance {
				fmt.Printf("Convergence after %d iterations: avg fitness=%v\n", iterations, avg)
				break
			}
			fmt.Printf("Iteration (%d): %v\n", iterations, avg)
		}
	}

	if verbose {
		printFitnesses(pool, "Final population")
	}

	return nil
}

func printFitnesses(pool *devol.GenePool[float64], label string) {
	fmt.Println(label + ":")
	solutions := pool.Solutions()
	fitnesses := pool.Fitnesses()
	for i, x := range solutions {
		fmt.Printf("Solution %6d: X = %-12v fitness = %-12v\n", i+1, x, fitnesses[i])
	}
}

func evalPolynomial(coeffs []float64, x float64) float64 {
	var sum, power float64 = 0, 1
	for _, a := range coeffs {
		sum += a * power
		power *= x
	}
	return sum
}

func parseSeed(s string) ([3]uint16, error) {
	var out [3]uint16
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("rootfinder: --seed must have exactly 3 comma-separated values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return out, fmt.Errorf("rootfinder: invalid seed value %q: %w", p, err)
		}
		out[i] = uint16(v)
	}
	return out, nil
}
