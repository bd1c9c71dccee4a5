package blockifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerCommitsEveryTransactionInOrder(t *testing.T) {
	const n = 100
	scheduler := New(n)

	var executed atomic.Int32
	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error {
		executed.Add(1)
		return nil
	})
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) { return true, nil })

	runner, err := NewOptions(scheduler, executor, validator, WithNumWorkers(6))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Start(ctx))
	defer runner.Close()

	committed := drainCommits(t, runner, n)
	assertCommitOrder(t, committed)
	require.EqualValues(t, n, executed.Load())
}

func TestRunnerSecondStartReturnsErrAlreadyStarted(t *testing.T) {
	scheduler := New(1)
	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error { return nil })
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) { return true, nil })

	runner, err := NewOptions(scheduler, executor, validator)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, runner.Start(ctx), "first Start")
	defer runner.Close()

	require.ErrorIs(t, runner.Start(ctx), ErrAlreadyStarted)
}

func TestRunnerReportsFatalCollaboratorErrorAndHalts(t *testing.T) {
	const n = 20
	scheduler := New(n)
	boom := errors.New("boom")

	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error {
		if txIndex == 3 {
			return boom
		}
		return nil
	})
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) { return true, nil })

	runner, err := NewOptions(scheduler, executor, validator, WithNumWorkers(4))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Start(ctx))

	// Drain commits concurrently so a full buffer can never block the dispatchers
	// from reaching and reporting the fatal error.
	go func() {
		for range runner.Commits() {
		}
	}()

	select {
	case gotErr := <-runner.Errors():
		require.ErrorIs(t, gotErr, boom)
	case <-time.After(4 * time.Second):
		t.Fatalf("expected a fatal error to be reported")
	}

	runner.Close()

	require.Less(t, scheduler.CommittedCount(), n, "expected the halt to cut the run short")
}

// A single dispatcher never completes attempts out of claim order on its own, so
// this exercises Runner's PreserveAttemptOrder wiring (the reorderer goroutine and
// its channel plumbing) without depending on how multiple concurrent workers happen
// to interleave claims — that reordering logic itself is covered directly in
// reorderer_test.go.
func TestRunnerPreserveAttemptOrderDeliversClaimOrder(t *testing.T) {
	const n = 30
	scheduler := New(n)

	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error { return nil })
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) { return true, nil })

	runner, err := NewOptions(scheduler, executor, validator,
		WithNumWorkers(1), WithPreserveAttemptOrder(), WithAttemptsBuffer(64))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Start(ctx))

	go func() {
		for range runner.Commits() {
		}
	}()

	var attempts []Attempt
	deadline := time.After(4 * time.Second)
collect:
	for {
		select {
		case a, ok := <-runner.Attempts():
			if !ok {
				break collect
			}
			attempts = append(attempts, a)
			if len(attempts) == n {
				// one execution attempt per transaction: a single worker commits each
				// transaction right after executing it, so the validation claim that
				// follows finds it Committed and produces no attempt
				break collect
			}
		case <-deadline:
			t.Fatalf("timed out waiting for attempts, got %d so far", len(attempts))
		}
	}

	runner.Close()

	execIndices := make([]int, 0, n)
	for _, a := range attempts {
		if a.Kind == ExecutionTask {
			execIndices = append(execIndices, a.Index)
		}
	}
	for i, idx := range execIndices {
		require.Equalf(t, i, idx, "expected execution attempts in claim order 0..%d, got %v", n-1, execIndices)
	}
}

func TestRunnerWithCommitterInvokedPerCommit(t *testing.T) {
	const n = 10
	scheduler := New(n)

	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error { return nil })
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) { return true, nil })

	var committedCalls atomic.Int32
	committer := CommitterFunc(func(ctx context.Context, txIndex int) error {
		committedCalls.Add(1)
		return nil
	})

	runner, err := NewOptions(scheduler, executor, validator, WithCommitter(committer))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Start(ctx))
	defer runner.Close()

	drainCommits(t, runner, n)
	require.EqualValues(t, n, committedCalls.Load())
}

func drainCommits(t *testing.T, runner *Runner, want int) []int {
	t.Helper()
	committed := make([]int, 0, want)
	deadline := time.After(5 * time.Second)
	for len(committed) < want {
		select {
		case idx := <-runner.Commits():
			committed = append(committed, idx)
		case err := <-runner.Errors():
			t.Fatalf("unexpected error: %v", err)
		case <-deadline:
			t.Fatalf("timed out after %d/%d commits", len(committed), want)
		}
	}
	return committed
}
