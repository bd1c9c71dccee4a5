package blockifier

import (
	"sync"
	"sync/atomic"
)

// Scheduler coordinates optimistic parallel execution of a fixed-size, ordered chunk
// of transactions. It holds no transaction inputs, read/write sets, or state store —
// those belong to the Executor, Validator, and Committer collaborators (collaborators.go)
// that a Runner (runner.go) invokes on its behalf. Scheduler is exactly the state
// machine and task-dispatch discipline described in the package's design notes: two
// monotonic-with-rollback index cursors, a per-index status table, and a mutex-guarded
// commit cursor.
//
// A Scheduler is single-use: construct one per chunk with New, drive it with one or
// more goroutines until NextTask returns Done, then discard it.
type Scheduler struct {
	chunkSize int

	// executionIndex is the monotonically increasing high-water mark of indices handed
	// out for execution at least once. Only ever advanced by fetch-add.
	executionIndex atomic.Uint64

	// validationIndex is the low-water mark of the first index that still needs
	// validation. Advanced by fetch-add when a validation slot is claimed; lowered by
	// fetch-min whenever an earlier transaction (re-)completes execution.
	validationIndex atomic.Uint64

	// commitIndex is the next index eligible to commit. Every status transition to
	// Committed, and every read/write of commitIndex, happens while commitMu is held.
	commitMu    sync.Mutex
	commitIndex int

	// doneMarker is the sticky, one-way terminator checked by NextTask and TryCommit.
	doneMarker atomic.Bool

	slots []txSlot
}

// New constructs a Scheduler for a chunk of chunkSize transactions (indices
// [0, chunkSize)). chunkSize must be >= 0.
func New(chunkSize int) *Scheduler {
	if chunkSize < 0 {
		panic("blockifier: chunk size must be non-negative")
	}

	s := &Scheduler{
		chunkSize: chunkSize,
		slots:     make([]txSlot, chunkSize),
	}
	s.validationIndex.Store(uint64(chunkSize))

	// An empty chunk has nothing to execute, validate, or commit: no worker will ever
	// reach the commit phase to flip commitIndex to chunkSize, so NextTask must be made
	// to observe Done directly rather than relying on that path.
	if chunkSize == 0 {
		s.doneMarker.Store(true)
	}

	return s
}

// ChunkSize returns the fixed chunk size the scheduler was constructed with.
func (s *Scheduler) ChunkSize() int { return s.chunkSize }

func (s *Scheduler) done() bool { return s.doneMarker.Load() }

// Halt sets the scheduler's done marker. It is sticky: once set it is never cleared,
// and every worker's next call to NextTask (or a commit handle's TryCommit) observes it.
func (s *Scheduler) Halt() { s.doneMarker.Store(true) }

// CommittedCount returns the current commit cursor, i.e. the number of transactions
// committed so far. It blocks on the commit mutex, so it is meant for observers
// (tests, progress reporting), not the hot dispatch path.
func (s *Scheduler) CommittedCount() int {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.commitIndex
}

// NextTask is the dispatcher: it returns the next unit of work a worker should
// perform, preferring validation over execution whenever a validation is available,
// since validation is cheaper, surfaces conflicts earlier, and is a prerequisite for
// commit.
func (s *Scheduler) NextTask() Task {
	if s.done() {
		return taskDone
	}

	indexToValidate := s.validationIndex.Load()
	indexToExecute := s.executionIndex.Load()

	if min64(indexToValidate, indexToExecute) >= uint64(s.chunkSize) {
		return taskNoTaskAvailable
	}

	if indexToValidate < indexToExecute {
		if i, ok := s.nextVersionToValidate(); ok {
			return Task{Kind: ValidationTask, Index: i}
		}
	}

	if i, ok := s.nextVersionToExecute(); ok {
		return Task{Kind: ExecutionTask, Index: i}
	}

	return taskAskForTask
}

// FinishExecution reports that incarnation of transaction txIndex finished: its
// writes are visible in the versioned store and its read-set is ready to be
// (re-)validated. It must be called exactly once per ExecutionTask(txIndex) handed
// out by NextTask or returned by FinishAbort, after the executor collaborator
// completes. Panics if txIndex was not Executing (a contract violation by the caller).
func (s *Scheduler) FinishExecution(txIndex int) {
	s.setExecutedStatus(txIndex)
	s.decreaseValidationIndex(txIndex)
}

// TryValidationAbort attempts to claim the right to abort transaction txIndex's
// current incarnation. It succeeds (returns true) only if txIndex is currently
// Executed, in which case the caller now owns the abort and must call FinishAbort.
// If it returns false the caller does nothing further for txIndex.
func (s *Scheduler) TryValidationAbort(txIndex int) bool {
	slot := &s.slots[txIndex]
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.status == Executed {
		slot.status = Aborting
		return true
	}
	return false
}

// FinishAbort completes an abort claimed by TryValidationAbort: it resets txIndex
// back to ReadyToExecute and, if txIndex had already been handed out for execution
// in an earlier round, immediately re-incarnates it and returns a fresh
// ExecutionTask(txIndex) so the caller can re-execute without a NextTask round-trip.
// Otherwise it returns AskForTask; txIndex will be picked up on a later dispatch.
func (s *Scheduler) FinishAbort(txIndex int) Task {
	s.setReadyStatus(txIndex)

	if s.executionIndex.Load() > uint64(txIndex) && s.tryIncarnate(txIndex) {
		return Task{Kind: ExecutionTask, Index: txIndex}
	}
	return taskAskForTask
}

// FinishExecutionDuringCommit reports that the current CommitHandle holder
// re-executed transaction txIndex while committing (e.g. because its read-set
// referenced an uncommitted side effect that only materialized during commit).
// txIndex's status stays Committed; only indices > txIndex are marked for
// re-validation. It must only be called while the caller holds a CommitHandle.
func (s *Scheduler) FinishExecutionDuringCommit(txIndex int) {
	s.decreaseValidationIndex(txIndex + 1)
}

func (s *Scheduler) lockSlot(txIndex int) *txSlot {
	slot := &s.slots[txIndex]
	slot.mu.Lock()
	return slot
}

func (s *Scheduler) setExecutedStatus(txIndex int) {
	slot := s.lockSlot(txIndex)
	defer slot.mu.Unlock()

	if slot.status != Executing {
		panic("blockifier: FinishExecution called on a transaction that is not Executing")
	}
	slot.status = Executed
}

func (s *Scheduler) setReadyStatus(txIndex int) {
	slot := s.lockSlot(txIndex)
	defer slot.mu.Unlock()

	if slot.status != Aborting {
		panic("blockifier: FinishAbort called on a transaction that is not Aborting")
	}
	slot.status = ReadyToExecute
}

// tryIncarnate transitions txIndex from ReadyToExecute to Executing, returning
// whether it succeeded. It is the sole guard ensuring at most one worker executes a
// given index concurrently.
func (s *Scheduler) tryIncarnate(txIndex int) bool {
	if txIndex >= s.chunkSize {
		return false
	}
	slot := s.lockSlot(txIndex)
	defer slot.mu.Unlock()

	if slot.status == ReadyToExecute {
		slot.status = Executing
		return true
	}
	return false
}

// decreaseValidationIndex lowers validationIndex to target if it currently exceeds
// it (an atomic fetch-min), so that target and everything after it is validated
// again. It never raises validationIndex.
func (s *Scheduler) decreaseValidationIndex(target int) {
	t := uint64(target)
	for {
		cur := s.validationIndex.Load()
		if cur <= t {
			return
		}
		if s.validationIndex.CompareAndSwap(cur, t) {
			return
		}
	}
}

// nextVersionToValidate claims the next validation slot, if any is available and
// actually Executed. The pre-fetch-add load is a fast-path optimization only; the
// post-fetch-add bounds check is the sole correctness guard, since validationIndex
// can be lowered concurrently by decreaseValidationIndex at any time.
func (s *Scheduler) nextVersionToValidate() (int, bool) {
	if s.validationIndex.Load() >= uint64(s.chunkSize) {
		return 0, false
	}

	i := s.validationIndex.Add(1) - 1
	if i < uint64(s.chunkSize) {
		slot := s.lockSlot(int(i))
		defer slot.mu.Unlock()
		if slot.status == Executed {
			return int(i), true
		}
	}
	return 0, false
}

// nextVersionToExecute claims the next execution slot, if any is available and
// successfully incarnated.
func (s *Scheduler) nextVersionToExecute() (int, bool) {
	if s.executionIndex.Load() >= uint64(s.chunkSize) {
		return 0, false
	}

	i := s.executionIndex.Add(1) - 1
	if s.tryIncarnate(int(i)) {
		return int(i), true
	}
	return 0, false
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
