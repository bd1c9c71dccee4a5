package blockifier

import (
	"fmt"

	"github.com/kariy/blockifier/metrics"
)

// Option configures a Runner. Use NewOptions(scheduler, executor, validator, opts...)
// to build one; scheduler and the collaborators are positional arguments, everything
// else is optional.
type Option func(*configOptions)

// internal builder state for options assembly.
type configOptions struct {
	cfg          config
	poolSelected poolType
}

type poolType int

const (
	poolUnspecified poolType = iota
	poolDynamic
	poolFixed
)

// WithNumWorkers sets the number of concurrent dispatcher goroutines (default
// runtime.GOMAXPROCS(0)).
func WithNumWorkers(n uint) Option {
	return func(co *configOptions) {
		if n == 0 {
			panic("blockifier: WithNumWorkers requires n > 0")
		}
		co.cfg.NumWorkers = n
	}
}

// WithFixedSlotPool selects a fixed-capacity execSlot pool of the given size (must be > 0).
func WithFixedSlotPool(n uint) Option {
	return func(co *configOptions) {
		if co.poolSelected != poolUnspecified && co.poolSelected != poolFixed {
			panic("blockifier: conflicting pool options: WithFixedSlotPool and WithDynamicSlotPool both specified")
		}
		if n == 0 {
			panic("blockifier: WithFixedSlotPool requires n > 0")
		}
		co.poolSelected = poolFixed
		co.cfg.MaxSlots = n
	}
}

// WithDynamicSlotPool selects a dynamic, sync.Pool-backed execSlot pool (the default
// if no pool option is given).
func WithDynamicSlotPool() Option {
	return func(co *configOptions) {
		if co.poolSelected != poolUnspecified && co.poolSelected != poolDynamic {
			panic("blockifier: conflicting pool options: WithFixedSlotPool and WithDynamicSlotPool both specified")
		}
		co.poolSelected = poolDynamic
		co.cfg.MaxSlots = 0
	}
}

// WithCommitter sets the Committer invoked for each transaction as it commits.
func WithCommitter(c Committer) Option {
	return func(co *configOptions) { co.cfg.Committer = c }
}

// WithMetrics sets the metrics.Provider instruments are recorded against.
func WithMetrics(p metrics.Provider) Option {
	return func(co *configOptions) { co.cfg.Metrics = p }
}

// WithErrorTagging wraps fatal collaborator errors with transaction-index and
// incarnation metadata before they reach Errors().
func WithErrorTagging() Option {
	return func(co *configOptions) { co.cfg.ErrorTagging = true }
}

// WithPreserveAttemptOrder enables Attempts() records, emitted in claim-sequence
// order. Without it no attempt records are produced.
func WithPreserveAttemptOrder() Option {
	return func(co *configOptions) { co.cfg.PreserveAttemptOrder = true }
}

// WithErrorsBuffer sets the size of the outward Errors() channel buffer (default 16).
func WithErrorsBuffer(size uint) Option {
	return func(co *configOptions) { co.cfg.ErrorsBufferSize = size }
}

// WithCommitsBuffer sets the size of the outward Commits() channel buffer (default 1024).
func WithCommitsBuffer(size uint) Option {
	return func(co *configOptions) { co.cfg.CommitsBufferSize = size }
}

// WithAttemptsBuffer sets the size of the outward Attempts() channel buffer (default 1024).
func WithAttemptsBuffer(size uint) Option {
	return func(co *configOptions) { co.cfg.AttemptsBufferSize = size }
}

// NewOptions builds a Runner around scheduler using functional options. scheduler,
// executor, and validator are required; everything else has a default.
func NewOptions(scheduler *Scheduler, executor Executor, validator Validator, opts ...Option) (*Runner, error) {
	co := configOptions{cfg: defaultConfig(), poolSelected: poolUnspecified}
	for _, opt := range opts {
		if opt == nil {
			panic("blockifier: nil Runner option")
		}
		opt(&co)
	}

	if co.poolSelected == poolUnspecified {
		co.poolSelected = poolDynamic
		co.cfg.MaxSlots = 0
	}
	if co.cfg.Metrics == nil {
		co.cfg.Metrics = metrics.NewNoopProvider()
	}

	if err := validateConfig(&co.cfg); err != nil {
		return nil, fmt.Errorf("blockifier: invalid runner config: %w", err)
	}

	return newRunner(scheduler, executor, validator, &co.cfg)
}
