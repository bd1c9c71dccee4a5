package blockifier

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kariy/blockifier/pool"
)

// Runner drives a Scheduler with a fixed pool of worker goroutines. It is the
// concurrent counterpart to RunSequential: where RunSequential performs every
// execution, validation, and commit itself on one goroutine, Runner fans the same
// work out across cfg.NumWorkers dispatcher goroutines pulling from the same
// Scheduler.
//
// Generalizes the corpus's Workers[R] (fixed/dynamic pool, optional preserve-order
// reorderer, StopOnError forwarding, ordered shutdown) from an arbitrary-task queue
// worker pool into a driver specialized for exactly the three collaborator shapes
// this package defines. The goroutine fan-out itself is grounded on the
// errgroup.Group-based fixed-worker-count loop used by Cosmos SDK's optimistic
// execution scheduler.
type Runner struct {
	scheduler *Scheduler
	cfg       config

	executor  Executor
	validator Validator

	cancel context.CancelFunc

	started atomic.Bool

	errorsOut   chan error
	commitsOut  chan int
	attemptsOut chan Attempt

	internalErrors chan error
	attemptsIn     chan attemptEvent

	reorderer *reorderer

	forwarderWG  sync.WaitGroup
	errorsSendWG sync.WaitGroup

	lifecycle *lifecycleCoordinator
}

// newRunner wires an already-constructed Scheduler together with the channels and
// (if enabled) the attempt reorderer. It does not start any goroutines; call Start
// to do that.
func newRunner(scheduler *Scheduler, executor Executor, validator Validator, cfg *config) (*Runner, error) {
	r := &Runner{
		scheduler:      scheduler,
		cfg:            *cfg,
		executor:       executor,
		validator:      validator,
		errorsOut:      make(chan error, cfg.ErrorsBufferSize),
		commitsOut:     make(chan int, cfg.CommitsBufferSize),
		attemptsOut:    make(chan Attempt, cfg.AttemptsBufferSize),
		internalErrors: make(chan error, cfg.internalErrorsBufferSize),
	}

	if cfg.PreserveAttemptOrder {
		r.attemptsIn = make(chan attemptEvent, cfg.AttemptsBufferSize)
		r.reorderer = newReorderer(r.attemptsIn, r.attemptsOut)
	}

	return r, nil
}

// newSlotPool builds the execSlot pool selected by cfg.
func newSlotPool(maxSlots uint) pool.Pool {
	if maxSlots == 0 {
		return pool.NewDynamic(newExecSlot)
	}
	return pool.NewFixed(maxSlots, newExecSlot)
}

// Start launches cfg.NumWorkers dispatcher goroutines, the attempt reorderer (if
// enabled), and the error forwarder, all bound to a context derived from ctx. Start
// may only be called once; subsequent calls return ErrAlreadyStarted.
func (r *Runner) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	closeCh := make(chan struct{})

	r.forwarderWG.Add(1)
	go func() {
		defer r.forwarderWG.Done()
		f := newErrorForwarder(r.internalErrors, r.errorsOut, closeCh, cancel, r.scheduler.Halt, &r.errorsSendWG)
		f.run()
	}()

	if r.reorderer != nil {
		r.forwarderWG.Add(1)
		go func() {
			defer r.forwarderWG.Done()
			r.reorderer.run()
		}()
	}

	incarnations := make([]atomic.Int32, r.scheduler.ChunkSize())
	var seq atomic.Int64
	instruments := newInstrumentSet(r.cfg.Metrics)
	slotPool := newSlotPool(r.cfg.MaxSlots)

	var attemptsIn chan<- attemptEvent
	if r.reorderer != nil {
		attemptsIn = r.attemptsIn
	}

	g, gctx := errgroup.WithContext(runCtx)

	for i := uint(0); i < r.cfg.NumWorkers; i++ {
		d := &dispatcher{
			scheduler:    r.scheduler,
			executor:     r.executor,
			validator:    r.validator,
			committer:    r.cfg.Committer,
			slotPool:     slotPool,
			metrics:      instruments,
			incarnations: incarnations,
			seq:          &seq,
			attemptsIn:   attemptsIn,
			commitsOut:   r.commitsOut,
			errorsIn:     r.internalErrors,
			errorTagging: r.cfg.ErrorTagging,
		}
		g.Go(func() error {
			d.run(gctx)
			return nil
		})
	}

	r.lifecycle = newLifecycleCoordinator(
		cancel,
		func() { _ = g.Wait() },
		closeCh,
		&r.forwarderWG,
		&r.errorsSendWG,
		r.drainInternalErrors,
		r.closeAttemptsIn,
		r.waitReorderer,
		r.closeCommits,
		r.closeErrors,
	)

	return nil
}

// Close performs an ordered shutdown: cancel, wait for dispatcher goroutines, close
// the attempts-in channel so the reorderer goroutine (if any) can exit, wait for it
// and the error forwarder, drain internal errors, then close the outward Errors,
// Commits, and Attempts channels. Safe to call multiple times and from multiple
// goroutines; only the first call has an effect. Close is a no-op if Start was never
// called.
func (r *Runner) Close() {
	if r.lifecycle != nil {
		r.lifecycle.Close()
	}
}

// Errors returns the channel fatal collaborator errors are reported on. At most one
// error is ever delivered: the first fatal error halts the scheduler and cancels
// every dispatcher, so later errors are dropped rather than queued.
func (r *Runner) Errors() <-chan error { return r.errorsOut }

// Commits returns the channel transaction indices are reported on as they commit,
// in commit order (which is always index order).
func (r *Runner) Commits() <-chan int { return r.commitsOut }

// Attempts returns the channel execution/validation attempt records are reported
// on, for diagnostics and tests, in claim order. Records are only produced when
// PreserveAttemptOrder is set; otherwise nothing is ever sent on this channel.
func (r *Runner) Attempts() <-chan Attempt { return r.attemptsOut }

// CommittedCount returns the number of transactions committed so far.
func (r *Runner) CommittedCount() int { return r.scheduler.CommittedCount() }

func (r *Runner) drainInternalErrors() {
	for {
		select {
		case <-r.internalErrors:
		default:
			return
		}
	}
}

func (r *Runner) closeAttemptsIn() {
	if r.attemptsIn != nil {
		close(r.attemptsIn)
	}
}

func (r *Runner) waitReorderer() {
	// No-op: the reorderer's goroutine (if any) is one of the goroutines forwarderWG
	// already waited on, after closeAttemptsIn unblocked its range loop. Kept as an
	// explicit lifecycle step for symmetry with closeAttemptsIn.
}

// closeCommits also closes the Attempts channel: by this step the dispatchers and
// the reorderer, its only writers, have returned.
func (r *Runner) closeCommits() {
	close(r.commitsOut)
	close(r.attemptsOut)
}
func (r *Runner) closeErrors() { close(r.errorsOut) }
