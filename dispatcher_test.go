package blockifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kariy/blockifier/metrics"
	"github.com/kariy/blockifier/pool"
)

var errWantedForTest = errors.New("boom")

func newTestDispatcher(scheduler *Scheduler, executor Executor, validator Validator, committer Committer) (*dispatcher, <-chan int, <-chan error) {
	commitsOut := make(chan int, scheduler.ChunkSize())
	errorsIn := make(chan error, 8)
	incarnations := make([]atomic.Int32, scheduler.ChunkSize())
	var seq atomic.Int64

	d := &dispatcher{
		scheduler:    scheduler,
		executor:     executor,
		validator:    validator,
		committer:    committer,
		slotPool:     pool.NewDynamic(newExecSlot),
		metrics:      newInstrumentSet(metrics.NewNoopProvider()),
		incarnations: incarnations,
		seq:          &seq,
		commitsOut:   commitsOut,
		errorsIn:     errorsIn,
	}
	return d, commitsOut, errorsIn
}

func TestDispatcherRunSingleWorkerCommitsInOrder(t *testing.T) {
	const n = 8
	scheduler := New(n)

	var executed atomic.Int32
	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error {
		executed.Add(1)
		return nil
	})
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) {
		return true, nil
	})

	d, commitsOut, errorsIn := newTestDispatcher(scheduler, executor, validator, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() { d.run(ctx); close(done) }()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("dispatcher did not finish before timeout")
	}

	close(commitsOut)
	close(errorsIn)

	got := make([]int, 0, n)
	for idx := range commitsOut {
		got = append(got, idx)
	}
	for i, idx := range got {
		if idx != i {
			t.Fatalf("commit order mismatch at position %d: got=%v", i, got)
		}
	}
	if len(got) != n {
		t.Fatalf("expected %d commits, got %d", n, len(got))
	}
	if executed.Load() != n {
		t.Fatalf("expected %d executions, got %d", n, executed.Load())
	}
	for range errorsIn {
		t.Fatalf("expected no errors")
	}
}

func TestDispatcherRunStopsOnFatalExecutorError(t *testing.T) {
	const n = 4
	scheduler := New(n)
	boom := errWantedForTest

	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error {
		if txIndex == 1 {
			return boom
		}
		return nil
	})
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) {
		return true, nil
	})

	d, commitsOut, errorsIn := newTestDispatcher(scheduler, executor, validator, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { d.run(ctx); close(done) }()

	select {
	case err := <-errorsIn:
		if err != boom {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a fatal error to be reported")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher did not stop after cancellation")
	}
	_ = commitsOut
}
