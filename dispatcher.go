package blockifier

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/kariy/blockifier/pool"
)

// dispatcher is one worker goroutine's loop body: ask the scheduler for a task,
// run it against whichever collaborator applies, report the outcome back to the
// scheduler, and opportunistically try the commit phase. A Runner starts NumWorkers
// of these concurrently; there is no task channel because there is nothing to queue —
// NextTask already is the queue.
//
// Generalizes the corpus's dispatcher[R] (select on ctx.Done / a task channel,
// dispatch to a pooled *worker[R]) from a push model into a pull model: the
// scheduler, not a channel, decides what a dispatcher does next.
type dispatcher struct {
	scheduler *Scheduler

	executor  Executor
	validator Validator
	committer Committer

	slotPool pool.Pool // yields *execSlot

	metrics instrumentSet

	incarnations []atomic.Int32 // one counter per transaction index, shared by all dispatchers
	seq          *atomic.Int64  // monotonic claim-sequence generator, shared by all dispatchers

	attemptsIn   chan<- attemptEvent // nil if attempt reporting is disabled
	commitsOut   chan<- int
	errorsIn     chan<- error
	errorTagging bool

	backoff backoff
}

// run executes the loop until ctx is cancelled or the scheduler reports Done.
func (d *dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task := d.scheduler.NextTask()
		switch task.Kind {
		case Done:
			return

		case ExecutionTask:
			d.runExecution(ctx, task.Index)
			d.tryCommit(ctx)
			d.backoff.reset()

		case ValidationTask:
			d.runValidation(ctx, task.Index)
			d.tryCommit(ctx)
			d.backoff.reset()

		default: // AskForTask, NoTaskAvailable
			if committed := d.tryCommit(ctx); committed {
				d.backoff.reset()
			} else {
				d.backoff.wait(ctx)
			}
		}
	}
}

func (d *dispatcher) runExecution(ctx context.Context, txIndex int) {
	incarnation := int(d.incarnations[txIndex].Add(1)) - 1
	seq := int(d.seq.Add(1)) - 1

	slot := d.slotPool.Get().(*execSlot)
	d.metrics.inflight.Add(1)
	err := slot.runExecute(ctx, d.executor, txIndex, incarnation)
	d.metrics.inflight.Add(-1)
	d.slotPool.Put(slot)
	d.metrics.executions.Add(1)

	if err != nil {
		d.reportFatal(ctx, err, txIndex, incarnation, true)
		d.emitAttempt(seq, Attempt{Index: txIndex, Incarnation: incarnation, Kind: ExecutionTask, Err: err})
		return
	}

	d.scheduler.FinishExecution(txIndex)
	d.emitAttempt(seq, Attempt{Index: txIndex, Incarnation: incarnation, Kind: ExecutionTask})
}

func (d *dispatcher) runValidation(ctx context.Context, txIndex int) {
	seq := int(d.seq.Add(1)) - 1

	slot := d.slotPool.Get().(*execSlot)
	d.metrics.inflight.Add(1)
	valid, err := slot.runValidate(ctx, d.validator, txIndex)
	d.metrics.inflight.Add(-1)
	d.slotPool.Put(slot)
	d.metrics.validations.Add(1)

	if err != nil {
		d.reportFatal(ctx, err, txIndex, 0, false)
		d.emitAttempt(seq, Attempt{Index: txIndex, Kind: ValidationTask, Err: err})
		return
	}

	if valid {
		d.emitAttempt(seq, Attempt{Index: txIndex, Kind: ValidationTask})
		return
	}

	if !d.scheduler.TryValidationAbort(txIndex) {
		// Lost the race for the abort to another worker's concurrent validation; txIndex's
		// status already moved on from Executed by the time we tried to claim it.
		d.emitAttempt(seq, Attempt{Index: txIndex, Kind: ValidationTask})
		return
	}

	d.metrics.aborts.Add(1)
	next := d.scheduler.FinishAbort(txIndex)
	d.emitAttempt(seq, Attempt{Index: txIndex, Kind: ValidationTask, Aborted: true})

	if next.Kind == ExecutionTask {
		// Local re-execution: the abort resurrected a transaction already handed out for
		// execution in an earlier round. Run it now instead of looping back through
		// NextTask, so the re-execution isn't delayed behind unrelated claims.
		d.runExecution(ctx, next.Index)
	}
}

// tryCommit enters the commit phase if uncontended and drains as many ready
// transactions as are available, validating each once more (re-executing it if its
// read-set has gone stale) and invoking the Committer (if any) for each. A fatal
// error excludes that transaction via HaltScheduler. Returns whether at least one
// transaction was committed.
func (d *dispatcher) tryCommit(ctx context.Context) bool {
	handle, ok := d.scheduler.TryEnterCommitPhase()
	if !ok {
		return false
	}
	defer handle.Release()

	committedAny := false
	for {
		txIndex, ok := handle.TryCommit()
		if !ok {
			break
		}
		committedAny = true

		// Validate again under the commit handle; a stale read-set is re-executed here.
		slot := d.slotPool.Get().(*execSlot)
		valid, err := slot.runValidate(ctx, d.validator, txIndex)
		if err == nil && !valid {
			incarnation := int(d.incarnations[txIndex].Add(1)) - 1
			if err = slot.runExecute(ctx, d.executor, txIndex, incarnation); err == nil {
				d.scheduler.FinishExecutionDuringCommit(txIndex)
			}
		}
		d.slotPool.Put(slot)
		if err != nil {
			d.reportFatal(ctx, err, txIndex, 0, false)
			handle.HaltScheduler()
			break
		}

		d.metrics.commits.Add(1)
		d.metrics.incarnations.Record(float64(d.incarnations[txIndex].Load()))

		if d.committer != nil {
			slot := d.slotPool.Get().(*execSlot)
			err := slot.runCommit(ctx, d.committer, txIndex)
			d.slotPool.Put(slot)
			if err != nil {
				d.reportFatal(ctx, err, txIndex, 0, false)
				handle.HaltScheduler()
				break
			}
		}

		select {
		case d.commitsOut <- txIndex:
		case <-ctx.Done():
		}
	}
	return committedAny
}

func (d *dispatcher) reportFatal(ctx context.Context, err error, txIndex, incarnation int, hasIncarn bool) {
	if d.errorTagging {
		err = newTxTaggedError(err, txIndex, incarnation, hasIncarn)
	}
	select {
	case d.errorsIn <- err:
	case <-ctx.Done():
	}
}

// emitAttempt reports one attempt outcome. The reorderer drains attemptsIn until
// Runner.Close explicitly closes it (after every dispatcher goroutine has already
// returned), so this send does not need to race ctx cancellation.
func (d *dispatcher) emitAttempt(seq int, a Attempt) {
	if d.attemptsIn == nil {
		return
	}
	d.attemptsIn <- attemptEvent{seq: seq, val: a, present: true}
}

// backoff is a small capped backoff used when a dispatcher is told there's no
// work: a few rounds of runtime.Gosched before escalating to short sleeps. Mirrors
// the corpus's preference for wait-free hot paths with a cheap cooperative yield
// before reaching for a timer.
type backoff struct {
	attempt int
}

func (b *backoff) reset() { b.attempt = 0 }

func (b *backoff) wait(ctx context.Context) {
	const (
		yieldRounds = 4
		minSleep    = 50 * time.Microsecond
		maxSleep    = 2 * time.Millisecond
	)

	b.attempt++
	if b.attempt <= yieldRounds {
		runtime.Gosched()
		return
	}

	d := minSleep << uint(b.attempt-yieldRounds-1)
	if d > maxSleep || d <= 0 {
		d = maxSleep
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
