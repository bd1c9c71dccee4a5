package blockifier

import "context"

// Executor runs one incarnation of a transaction against the versioned state store.
// A nil error means the incarnation completed — including an ordinary
// transaction-level revert, which is still a completed execution from the
// scheduler's point of view — and its writes are visible to later readers. A
// non-nil error is treated as fatal by a Runner: it halts the scheduler and is
// reported on the Runner's error stream.
type Executor interface {
	Execute(ctx context.Context, txIndex, incarnation int) error
}

// ExecutorFunc adapts a bare function to Executor.
type ExecutorFunc func(ctx context.Context, txIndex, incarnation int) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, txIndex, incarnation int) error {
	return f(ctx, txIndex, incarnation)
}

// Validator checks whether a previously executed transaction's recorded read-set is
// still consistent with the current state store. A non-nil error is fatal, the same
// as Executor's.
type Validator interface {
	Validate(ctx context.Context, txIndex int) (valid bool, err error)
}

// ValidatorFunc adapts a bare function to Validator.
type ValidatorFunc func(ctx context.Context, txIndex int) (bool, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, txIndex int) (bool, error) {
	return f(ctx, txIndex)
}

// Committer finalizes a committed transaction's writes (and any bookkeeping such as
// fee transfer) into the authoritative state store. A Runner's Committer is
// optional: a nil Committer means commit only advances the scheduler's cursor. A
// non-nil error is fatal.
type Committer interface {
	Commit(ctx context.Context, txIndex int) error
}

// CommitterFunc adapts a bare function to Committer.
type CommitterFunc func(ctx context.Context, txIndex int) error

// Commit calls f.
func (f CommitterFunc) Commit(ctx context.Context, txIndex int) error {
	return f(ctx, txIndex)
}
