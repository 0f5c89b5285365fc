// Command mixture fits a mixture of normal distributions to a data set by
// maximum likelihood, using devol's evolutionary search engine in place of
// EM. Each candidate solution carries its own mu/sigma/prob parameter
// vectors; the Swap callback deep-copies those vectors during dispersal,
// exactly as mixture.c's swap() does for its bucket-allocated arrays.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alexwaterman/devol"
	"github.com/alexwaterman/devol/cmd/mixture/internal/load"
)

// probVar bounds the per-iteration probability-mass perturbation; mixture.c
// defines the same constant in mixture.h.
const probVar = 0.01

// fitnessCeiling anchors the minimize-only fitness: the closer the negative
// log-likelihood sum is to this ceiling, the better the fit.
const fitnessCeiling = 1.0e12

var (
	dataFile     string
	normsFile    string
	popSize      int
	threads      int
	repRate      float64
	breedFitness float64
	dispersal    float64
	maxIter      int
	seedFlag     string
	converge     bool
	verbose      bool

	rootCmd = &cobra.Command{
		Use:   "mixture",
		Short: "Fit a mixture of normal distributions by evolutionary maximum likelihood",
		Long: `mixture reads a data file and a description of N normal distributions,
then evolves a population of candidate mixture parameters toward the
maximum-likelihood fit, using devol's gene pool.`,
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
	flags.StringVar(&dataFile, "data", "", "data file, one sample per line (required)")
	flags.StringVar(&normsFile, "norms", "", "YAML file describing the candidate distributions (required)")
	flags.IntVar(&popSize, "pop-size", 100, "population size")
	flags.IntVar(&threads, "threads", 1, "worker count; 1 runs the sequential gene pool")
	flags.Float64Var(&repRate, "rep-rate", 0.25, "reproduction rate")
	flags.Float64Var(&breedFitness, "breed-fitness", 0.25, "fraction of the population allowed to breed")
	flags.Float64Var(&dispersal, "dispersal", 0.0, "gene dispersal factor")
	flags.IntVar(&maxIter, "max-iter", 100, "maximum iterations")
	flags.StringVar(&seedFlag, "seed", "7,20,1969", "3 comma-separated uint16 seed values")
	flags.BoolVar(&converge, "converge", false, "stop early once average fitness stops improving")
	flags.BoolVar(&verbose, "verbose", false, "print every solution at the start and end of the run")
}

// mixtureSolution is the per-candidate payload: parallel mu/sigma/prob
// vectors, one triple per normal component, plus a memoized fitness value
// (mixture.c's struct mixture_solution.solved/mle).
type mixtureSolution struct {
	mu     []float64
	sigma  []float64
	prob   []float64
	solved bool
	mle    float64
}

func run(_ *cobra.Command, _ []string) error {
	if dataFile == "" {
		return fmt.Errorf("mixture: you must specify a data file via --data")
	}
	if normsFile == "" {
		return fmt.Errorf("mixture: you must specify a distribution file via --norms")
	}

	seed, err := parseSeed(seedFlag)
	if err != nil {
		return err
	}

	norms, err := load.Distributions(normsFile)
	if err != nil {
		return err
	}
	samples, err := load.Samples(dataFile)
	if err != nil {
		return err
	}

	fmt.Printf("# Read %d normal distributions.\n", len(norms))
	for _, n := range norms {
		fmt.Printf("#   %s: mean=[%.4f,%.4f] stddev=[%.4f,%.4f] var=[%.4f %.4f]\n",
			n.Name, n.MuMin, n.MuMax, n.SigmaMin, n.SigmaMax, n.MuVar, n.SigmaVar)
	}
	fmt.Printf("# Read %d data samples.\n", len(samples))

	callbacks := mixtureCallbacks{norms: norms, samples: samples}

	params := devol.Params[*mixtureSolution]{
		ReproductionRate:    repRate,
		BreedFitness:        breedFitness,
		GeneDispersalFactor: dispersal,
		Callbacks:           callbacks,
		Seed:                seed,
	}

	var pool *devol.GenePool[*mixtureSolution]
	if threads <= 1 {
		pool, err = devol.NewSequentialGenePool(popSize, params)
	} else {
		pool, err = devol.NewGenePool(popSize, threads, params)
	}
	if err != nil {
		return fmt.Errorf("mixture: unable to initialize the gene pool: %w", err)
	}
	defer pool.Close()

	fmt.Println("# Gene pool made, solutions inited, running...")

	if verbose {
		printSolutions(pool, "Initial population")
	}

	prevAvg := math.Inf(1)
	iter := 0
	for iter < maxIter {
		iter++
		if err := pool.Iterate(context.Background()); err != nil {
			return err
		}

		avg := pool.AverageFitness()
		if converge {
			fmt.Printf("%6d\t%f\n", iter, avg)
			if avg >= prevAvg {
				fmt.Printf("# Converged after %d iterations.\n", iter)
				break
			}
			prevAvg = avg
		}
	}

	if verbose {
		printSolutions(pool, "Final population")
	}

	return nil
}

func printSolutions(pool *devol.GenePool[*mixtureSolution], label string) {
	fmt.Println(label + ":")
	solutions := pool.Solutions()
	fitnesses := pool.Fitnesses()
	for i, s := range solutions {
		fmt.Printf("# Solution %d (fitness = %f)\n", i, fitnesses[i])
		for j := range s.mu {
			fmt.Printf("#  mu = %.4f sigma = %.4f prob = %.4f\n", s.mu[j], s.sigma[j], s.prob[j])
		}
	}
}

// mixtureCallbacks implements devol.Callbacks[*mixtureSolution], grounded on
// mixture.c's init/fitness/mutate/destroy/swap.
type mixtureCallbacks struct {
	norms   []load.Normal
	samples []float64
}

func (m mixtureCallbacks) Init(_ context.Context, c *devol.Controller) (*mixtureSolution, error) {
	n := len(m.norms)
	s := &mixtureSolution{
		mu:    make([]float64, n),
		sigma: make([]float64, n),
		prob:  make([]float64, n),
	}
	for i, norm := range m.norms {
		s.mu[i] = norm.MuMin + c.Float64()*(norm.MuMax-norm.MuMin)
		s.sigma[i] = norm.SigmaMin + c.Float64()*(norm.SigmaMax-norm.SigmaMin)
		s.prob[i] = 1.0 / float64(n)
	}
	return s, nil
}

// Fitness returns the memoized maximum-likelihood distance from
// fitnessCeiling: the log-likelihood sum of every sample under the mixture,
// subtracted from an arbitrary ceiling so smaller is better.
func (m mixtureCallbacks) Fitness(s *mixtureSolution) float64 {
	if s.solved {
		return s.mle
	}

	var logLikelihood float64
	for _, x := range m.samples {
		logLikelihood += math.Log(m.mlePointEstimate(s, x))
	}

	s.solved = true
	s.mle = fitnessCeiling - logLikelihood
	return s.mle
}

// mlePointEstimate is the weighted sum of each component's normal PDF at x,
// mirroring mixture.c's _do_mle_point_estimate.
func (m mixtureCallbacks) mlePointEstimate(s *mixtureSolution, x float64) float64 {
	var sum float64
	for i := range m.norms {
		dist := distuv.Normal{Mu: s.mu[i], Sigma: s.sigma[i]}
		sum += s.prob[i] * dist.Prob(x)
	}
	return sum
}

func (m mixtureCallbacks) Mutate(_ context.Context, c *devol.Controller, p1, p2 *mixtureSolution) (*mixtureSolution, error) {
	n := len(m.norms)
	child := &mixtureSolution{
		mu:    make([]float64, n),
		sigma: make([]float64, n),
		prob:  make([]float64, n),
	}

	cpoint := c.Intn(n)
	for i := 0; i < n; i++ {
		if i < cpoint {
			child.mu[i] = p1.mu[i]
			child.sigma[i] = p1.sigma[i]
		} else {
			child.mu[i] = p2.mu[i]
			child.sigma[i] = p2.sigma[i]
		}
		// Probabilities never cross over; only mu/sigma do.
		child.prob[i] = p1.prob[i]
	}

	for i, norm := range m.norms {
		dMu := c.Float64()*norm.MuVar - norm.MuVar/2
		dSigma := c.Float64()*norm.SigmaVar - norm.SigmaVar/2
		child.mu[i] += dMu
		child.sigma[i] += dSigma
	}

	if n > 1 {
		dProb := c.Float64()*probVar - probVar/2
		plus := c.Intn(n)
		minus := plus
		for minus == plus {
			minus = c.Intn(n)
		}
		child.prob[plus] += dProb
		child.prob[minus] -= dProb
	}

	return child, nil
}

func (m mixtureCallbacks) Destroy(_ *devol.Controller, _ *mixtureSolution) {
	// Go's garbage collector reclaims the mu/sigma/prob slices; nothing to do.
}

// Swap exchanges the contents of the mu/sigma/prob vectors of left and right
// element by element, along with their cached fitness state, leaving each
// solution's own backing arrays in place, as mixture.c's swap() does for its
// bucket-allocated arrays.
func (m mixtureCallbacks) Swap(left, right *mixtureSolution) (*mixtureSolution, *mixtureSolution) {
	for i := range left.mu {
		left.mu[i], right.mu[i] = right.mu[i], left.mu[i]
		left.sigma[i], right.sigma[i] = right.sigma[i], left.sigma[i]
		left.prob[i], right.prob[i] = right.prob[i], left.prob[i]
	}
	left.solved, right.solved = right.solved, left.solved
	left.mle, right.mle = right.mle, left.mle
	return left, right
}

func parseSeed(s string) ([3]uint16, error) {
	var out [3]uint16
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("mixture: --seed must have exactly 3 comma-separated values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return out, fmt.Errorf("mixture: invalid seed value %q: %w", p, err)
		}
		out[i] = uint16(v)
	}
	return out, nil
}
