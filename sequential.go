package blockifier

import "context"

// RunSequential drives scheduler with exactly one goroutine: the caller's own. It
// performs every execution, validation, and commit itself, in whatever order
// NextTask hands tasks out, and returns once the scheduler reports Done or ctx is
// cancelled. With a single caller there is never contention on NextTask or the
// commit phase, so every AskForTask/NoTaskAvailable reduces to "try the commit
// phase, then loop" — no backoff is needed.
//
// It exists as a correctness oracle: tests drive the same Executor/Validator pair
// through both RunSequential and a concurrent Runner and compare the resulting
// commit order. It takes no Committer, matching its role as
// a reference for commit *order*, not commit *side effects*.
//
// Generalizes the corpus's build-tag-gated single-goroutine FIFO executor (fifo.go,
// historically kept out of the normal build as a baseline for the pooled executor)
// into an always-built, exported reference driver with the same "no pool, one
// goroutine, strict order" shape.
func RunSequential(ctx context.Context, scheduler *Scheduler, executor Executor, validator Validator) error {
	slot := &execSlot{}
	incarnations := make([]int, scheduler.ChunkSize())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		task := scheduler.NextTask()
		switch task.Kind {
		case Done:
			return nil

		case ExecutionTask:
			if err := runSequentialExecution(ctx, scheduler, executor, slot, incarnations, task.Index); err != nil {
				return err
			}

		case ValidationTask:
			if err := runSequentialValidation(ctx, scheduler, executor, validator, slot, incarnations, task.Index); err != nil {
				return err
			}

		default: // AskForTask, NoTaskAvailable
			if _, err := trySequentialCommit(scheduler); err != nil {
				return err
			}
		}
	}
}

func runSequentialExecution(ctx context.Context, scheduler *Scheduler, executor Executor, slot *execSlot, incarnations []int, txIndex int) error {
	// Correctness of re-execution itself is the scheduler's responsibility, not this
	// driver's.
	if err := slot.runExecute(ctx, executor, txIndex, incarnations[txIndex]); err != nil {
		return err
	}
	incarnations[txIndex]++
	scheduler.FinishExecution(txIndex)
	return nil
}

func runSequentialValidation(ctx context.Context, scheduler *Scheduler, executor Executor, validator Validator, slot *execSlot, incarnations []int, txIndex int) error {
	valid, err := slot.runValidate(ctx, validator, txIndex)
	if err != nil {
		return err
	}
	if valid {
		return nil
	}

	if !scheduler.TryValidationAbort(txIndex) {
		return nil
	}
	next := scheduler.FinishAbort(txIndex)
	if next.Kind == ExecutionTask {
		return runSequentialExecution(ctx, scheduler, executor, slot, incarnations, next.Index)
	}
	return nil
}

func trySequentialCommit(scheduler *Scheduler) (committedAny bool, err error) {
	handle, ok := scheduler.TryEnterCommitPhase()
	if !ok {
		return false, nil
	}
	defer handle.Release()

	for {
		if _, ok := handle.TryCommit(); !ok {
			return committedAny, nil
		}
		committedAny = true
	}
}
