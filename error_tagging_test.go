package blockifier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewTxTaggedErrorNilPassesThrough(t *testing.T) {
	if got := newTxTaggedError(nil, 3, 0, false); got != nil {
		t.Fatalf("expected nil in, nil out, got %v", got)
	}
}

func TestTxTaggedErrorExtraction(t *testing.T) {
	boom := errors.New("boom")
	tagged := newTxTaggedError(boom, 7, 2, true)

	if got, ok := ExtractTxIndex(tagged); !ok || got != 7 {
		t.Fatalf("expected TxIndex=7, got %d ok=%v", got, ok)
	}
	if got, ok := ExtractIncarnation(tagged); !ok || got != 2 {
		t.Fatalf("expected Incarnation=2, got %d ok=%v", got, ok)
	}
	if !errors.Is(tagged, boom) {
		t.Fatalf("expected tagged error to unwrap to boom")
	}
}

func TestTxTaggedErrorWithoutIncarnation(t *testing.T) {
	boom := errors.New("boom")
	tagged := newTxTaggedError(boom, 1, 0, false)

	if _, ok := ExtractIncarnation(tagged); ok {
		t.Fatalf("expected no incarnation to be reported when hasIncarn=false")
	}
	if got, ok := ExtractTxIndex(tagged); !ok || got != 1 {
		t.Fatalf("expected TxIndex=1, got %d ok=%v", got, ok)
	}
}

func TestExtractFromUntaggedErrorReturnsFalse(t *testing.T) {
	boom := errors.New("boom")
	if _, ok := ExtractTxIndex(boom); ok {
		t.Fatalf("expected ExtractTxIndex to report false for an untagged error")
	}
	if _, ok := ExtractIncarnation(boom); ok {
		t.Fatalf("expected ExtractIncarnation to report false for an untagged error")
	}
}

func TestTxTaggedErrorFormatting(t *testing.T) {
	boom := errors.New("boom")
	tagged := newTxTaggedError(boom, 4, 1, true)

	if got := fmt.Sprintf("%s", tagged); got != "boom" {
		t.Fatalf("expected %%s to format as the wrapped message, got %q", got)
	}
	if got := fmt.Sprintf("%+v", tagged); got != "tx(index=4,incarnation=1): boom" {
		t.Fatalf("unexpected %%+v output: %q", got)
	}
}

// End-to-end: WithErrorTagging must wrap the fatal error a Runner reports with
// correlation metadata extractable via ExtractTxIndex/ExtractIncarnation.
func TestRunnerErrorTaggingWrapsFatalError(t *testing.T) {
	boom := errors.New("boom")
	scheduler := New(8)

	executor := ExecutorFunc(func(ctx context.Context, txIndex, incarnation int) error {
		if txIndex == 5 {
			return boom
		}
		return nil
	})
	validator := ValidatorFunc(func(ctx context.Context, txIndex int) (bool, error) { return true, nil })

	runner, err := NewOptions(scheduler, executor, validator, WithNumWorkers(2), WithErrorTagging())
	if err != nil {
		t.Fatalf("NewOptions: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	go func() {
		for range runner.Commits() {
		}
	}()

	select {
	case gotErr := <-runner.Errors():
		if !errors.Is(gotErr, boom) {
			t.Fatalf("expected wrapped error to unwrap to boom, got %v", gotErr)
		}
		if idx, ok := ExtractTxIndex(gotErr); !ok || idx != 5 {
			t.Fatalf("expected ExtractTxIndex=5, got %d ok=%v", idx, ok)
		}
	case <-time.After(4 * time.Second):
		t.Fatalf("expected a fatal error to be reported")
	}

	runner.Close()
}
