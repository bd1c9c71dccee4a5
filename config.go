package blockifier

import (
	"runtime"

	"github.com/kariy/blockifier/metrics"
)

// config holds Runner configuration.
type config struct {
	// NumWorkers is the number of dispatcher goroutines that concurrently call
	// Scheduler.NextTask. Must be >= 1.
	// Default: runtime.GOMAXPROCS(0).
	NumWorkers uint

	// MaxSlots bounds a fixed-size execSlot pool's capacity. Zero (default) means
	// the pool grows and shrinks dynamically via sync.Pool instead.
	// Default: 0 (dynamic pool)
	MaxSlots uint

	// Committer is invoked for each transaction as it commits, after TryCommit
	// advances the scheduler's cursor. May be nil, in which case commit only
	// advances the cursor with no side effect of its own.
	Committer Committer

	// Metrics is the provider instruments are recorded against. A nil Metrics
	// defaults to metrics.NewNoopProvider().
	Metrics metrics.Provider

	// ErrorTagging wraps fatal collaborator errors with transaction-index and
	// incarnation metadata (see TxMetaError) before they reach Errors().
	// Default: false (disabled).
	ErrorTagging bool

	// PreserveAttemptOrder enables Attempts() records, emitted in the same order
	// transactions were claimed (by claim sequence). When it is false no attempt
	// records are produced. This adds head-of-line blocking and a buffering goroutine.
	// Default: false (disabled).
	PreserveAttemptOrder bool

	// ErrorsBufferSize is the size of the outward Errors() channel buffer.
	// Default: 16.
	ErrorsBufferSize uint

	// CommitsBufferSize is the size of the outward Commits() channel buffer.
	// Default: 1024.
	CommitsBufferSize uint

	// AttemptsBufferSize is the size of the outward Attempts() channel buffer.
	// Default: 1024.
	AttemptsBufferSize uint

	// internalErrorsBufferSize sizes the internal errors channel read by the
	// errorForwarder. Kept small so a fatal error triggers cancellation promptly.
	// Default: 8.
	internalErrorsBufferSize uint
}

// defaultConfig centralizes default values for config. Applied as the base for the
// options builder in NewOptions.
func defaultConfig() config {
	return config{
		NumWorkers:               uint(runtime.GOMAXPROCS(0)),
		MaxSlots:                 0, // dynamic pool
		Committer:                nil,
		Metrics:                  nil, // resolved to metrics.NewNoopProvider() by the options builder
		ErrorTagging:             false,
		PreserveAttemptOrder:     false,
		ErrorsBufferSize:         16,
		CommitsBufferSize:        1024,
		AttemptsBufferSize:       1024,
		internalErrorsBufferSize: 8,
	}
}

// validateConfig performs lightweight invariant checks ahead of constructing a Runner.
func validateConfig(cfg *config) error {
	if cfg.NumWorkers == 0 {
		return errConfigNumWorkers
	}
	return nil
}
