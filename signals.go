package devol

import "github.com/zoobzio/capitan"

// Signal constants for gene pool events.
// Signals follow the pattern: <component>.<event>.
const (
	// GenePool signals.
	SignalGenerationStarted  capitan.Signal = "genepool.generation-started"
	SignalGenerationFinished capitan.Signal = "genepool.generation-finished"
	SignalDispersalPerformed capitan.Signal = "genepool.dispersal-performed"
	SignalPoolClosed         capitan.Signal = "genepool.closed"

	// Worker signals.
	SignalWorkerGateEntered capitan.Signal = "worker.gate-entered"
	SignalWorkerGateExited  capitan.Signal = "worker.gate-exited"
	SignalWorkerCallbackErr capitan.Signal = "worker.callback-error"

	// Allocator signals.
	SignalAllocatorExhausted capitan.Signal = "allocator.bucket-exhausted"
	SignalAllocatorIllFormed capitan.Signal = "allocator.ill-formed-free"
)

// Common field keys using capitan primitive types, matching the style the
// rest of the observability stack expects (no custom struct serialization).
var (
	FieldGeneration   = capitan.NewIntKey("generation")     // Generation index
	FieldWorkerID     = capitan.NewIntKey("worker_id")      // Worker/controller id
	FieldWorkerCount  = capitan.NewIntKey("worker_count")   // Total workers
	FieldPopulation   = capitan.NewIntKey("population")     // Population size
	FieldAvgFitness   = capitan.NewFloat64Key("avg_fitness") // Average fitness this generation
	FieldDuration     = capitan.NewFloat64Key("duration")    // Generation duration in seconds
	FieldBucket       = capitan.NewIntKey("bucket")          // Allocator bucket index
	FieldPairsSwapped = capitan.NewIntKey("pairs_swapped")   // Dispersal pair count
	FieldError        = capitan.NewStringKey("error")        // Error message
	FieldTimestamp    = capitan.NewFloat64Key("timestamp")   // Unix timestamp
)
