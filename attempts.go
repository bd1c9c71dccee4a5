package blockifier

// Attempt records one observed execution or validation outcome, delivered on a
// Runner's Attempts() channel for diagnostics, replay logs, and tests. It carries
// no correctness-relevant information the scheduler itself doesn't already encode;
// it exists purely as an observability stream.
type Attempt struct {
	Index       int
	Incarnation int
	Kind        TaskKind // ExecutionTask or ValidationTask
	Aborted     bool     // ValidationTask only: whether TryValidationAbort succeeded
	Err         error    // non-nil only for a fatal collaborator error
}

// Reorderer (attempt-order coordinator)
//
// Responsibility:
//   - Consume attempt-completion events from worker goroutines and emit Attempt
//     records strictly in dispatch-claim order, regardless of which worker
//     finished first. Unlike commits, which are already serialized one at a time
//     by the commit-phase mutex, N workers finish execution/validation attempts at
//     arbitrary times, so this stream genuinely needs reordering.
//     Ordering is by claim sequence rather than transaction index, because a
//     re-executed or re-validated index is claimed — and so produces an attempt —
//     more than once; a transaction index alone is not a unique ordering key here.
//   - Advance the output cursor when an attempt has no record to emit (present ==
//     false), so later attempts are not blocked behind it. The Runner's dispatchers
//     always send present == true; only direct users of the reorderer send false.
//
// Inputs:
//   - events <-chan attemptEvent: stream of attempt-completion notifications.
//     Each event carries:
//   - seq: the monotonic sequence number assigned when the task was claimed,
//   - val: the Attempt record (when present == true),
//   - present: whether this completion has a record to emit.
//   - out chan<- Attempt: outward channel owned by Runner and written by the reorderer.
//
// Dependencies:
//   - Internal state only: an integer cursor `next` tracking the next expected
//     sequence number, and two in-memory structures buffering out-of-order
//     completions:
//   - buf: map[int]Attempt for records received ahead of the cursor,
//   - seenNoRes: set[int] for sequence numbers that completed without a record.
//
// Semantics mirror flushContiguous/finalFlush in reorderer.go exactly.
//
// Concurrency contracts:
//   - Single goroutine: the reorderer runs as one dedicated goroutine reading
//     events and writing to out. It does not require external synchronization.
//   - Channel ownership: the reorderer only reads from events and writes to out; it
//     never closes either channel. Channel closure is orchestrated by Runner's
//     lifecycle (lifecycle.go).
type attemptEvent struct {
	seq     int
	val     Attempt
	present bool
}
