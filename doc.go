// Package blockifier implements an optimistic, multi-worker scheduler for executing
// an ordered chunk of transactions concurrently while preserving the same outcome a
// strictly sequential execution would have produced.
//
// Scheduler is the state machine: two index cursors (execution, validation), a
// per-transaction status table, and a serialized commit cursor. It knows nothing
// about transaction contents, state stores, or goroutines; NextTask, FinishExecution,
// TryValidationAbort, FinishAbort, and the commit-phase methods on CommitHandle are
// its core API, and are safe to call from any number of goroutines concurrently.
//
// Runner is the worker-pool driver built on top of Scheduler: it starts NumWorkers
// dispatcher goroutines that pull tasks from NextTask, invoke the caller's Executor,
// Validator, and (optional) Committer, and report commits, attempts, and fatal errors
// on dedicated channels. RunSequential is a single-goroutine reference driver useful
// as a correctness oracle in tests.
//
// Construction
//   - NewOptions(scheduler, executor, validator, opts...): the primary constructor.
//     scheduler, executor, and validator are required; a Committer, slot-pool sizing,
//     metrics provider, error tagging, attempt ordering, and channel buffer sizes are
//     all configurable via Option values. Construction never blocks or spawns a
//     goroutine, so it takes no context; Start(ctx) is what does.
//
// Defaults
// Unless overridden, the following defaults apply to a newly constructed Runner:
//   - NumWorkers: runtime.GOMAXPROCS(0)
//   - MaxSlots: 0 (dynamic, sync.Pool-backed slot pool)
//   - Committer: nil (commit only advances the scheduler's cursor)
//   - Metrics: metrics.NewNoopProvider()
//   - ErrorTagging: false
//   - PreserveAttemptOrder: false
//   - ErrorsBufferSize: 16
//   - CommitsBufferSize: 1024
//   - AttemptsBufferSize: 1024
//
// Channel lifecycle
// A Runner exposes three outward channels: Errors(), Commits(), and Attempts(). None
// are closed until Close is called; Close cancels the internal context, waits for
// every dispatcher goroutine to return, drains and closes the internal plumbing, and
// finally closes Commits(), Attempts(), and Errors(), in that order. Callers should drain all
// three concurrently with Close to avoid deadlocking on a full buffer.
package blockifier
