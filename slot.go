package blockifier

import (
	"context"
	"fmt"
)

// execSlot is the reusable per-dispatch scratch object borrowed from a pool.Pool
// for the duration of one ExecutionTask or ValidationTask. It exists so a worker
// goroutine doesn't allocate fresh state on every claimed task; today that state is
// limited to the call wrapper itself, but it is the natural place to grow
// per-dispatch buffers (e.g. read/write-set scratch) without touching the
// dispatcher's hot loop.
//
// Generalizes the corpus's *worker[R] (Get from pool.Pool, execute one task,
// Put back), which wrapped an arbitrary user task; here the three collaborator
// shapes are fixed, so execSlot wraps whichever of them the dispatcher is invoking.
type execSlot struct{}

func newExecSlot() interface{} { return &execSlot{} }

// runExecute calls executor.Execute, recovering a panic into an error and racing
// completion against ctx cancellation — the same shape as the corpus's
// taskResultError.execute, so a cancelled context is observed promptly even if the
// collaborator call itself does not return immediately.
func (s *execSlot) runExecute(ctx context.Context, executor Executor, txIndex, incarnation int) error {
	var err error
	done := make(chan struct{}, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrCollaboratorPanicked, r)
			}
			done <- struct{}{}
		}()
		err = executor.Execute(ctx, txIndex, incarnation)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return err
	}
}

// runValidate calls validator.Validate with the same panic-recovery and
// cancellation-race shape as runExecute.
func (s *execSlot) runValidate(ctx context.Context, validator Validator, txIndex int) (bool, error) {
	var (
		valid bool
		err   error
	)
	done := make(chan struct{}, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrCollaboratorPanicked, r)
			}
			done <- struct{}{}
		}()
		valid, err = validator.Validate(ctx, txIndex)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-done:
		return valid, err
	}
}

// runCommit calls committer.Commit with the same panic-recovery and
// cancellation-race shape as runExecute.
func (s *execSlot) runCommit(ctx context.Context, committer Committer, txIndex int) error {
	var err error
	done := make(chan struct{}, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrCollaboratorPanicked, r)
			}
			done <- struct{}{}
		}()
		err = committer.Commit(ctx, txIndex)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return err
	}
}
