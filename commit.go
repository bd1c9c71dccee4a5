package blockifier

// CommitHandle is returned by Scheduler.TryEnterCommitPhase. Its holder is the sole
// party allowed to advance the scheduler's commit cursor for the duration of the
// hold. Release must be called exactly once, on every exit path — including a panic
// in the caller's own code — typically via a deferred call immediately after the
// handle is acquired, the same discipline any sync.Mutex-guarded critical section
// needs in Go.
type CommitHandle struct {
	scheduler *Scheduler
	released  bool
}

// TryEnterCommitPhase attempts to acquire the commit mutex without blocking. On
// success it returns a handle and ok=true; the caller becomes the sole committer
// until it calls Release. On contention it returns ok=false immediately — the
// caller should fall back to executing or validating rather than spin here.
func (s *Scheduler) TryEnterCommitPhase() (handle *CommitHandle, ok bool) {
	if !s.commitMu.TryLock() {
		return nil, false
	}
	return &CommitHandle{scheduler: s}, true
}

// Release releases the commit mutex. Safe to call multiple times; only the first
// call has an effect.
func (h *CommitHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.scheduler.commitMu.Unlock()
}

// TryCommit attempts to commit the next uncommitted transaction. It returns the
// index just committed and ok=true on success, or ok=false if the scheduler is
// already done or the next transaction has not reached Executed yet (the caller
// should leave the commit phase and do other work, not spin here).
func (h *CommitHandle) TryCommit() (index int, ok bool) {
	s := h.scheduler

	if s.done() {
		return 0, false
	}
	if s.commitIndex >= s.chunkSize {
		panic("blockifier: commit index must be less than chunk size while the scheduler is not done")
	}

	slot := s.lockSlot(s.commitIndex)
	defer slot.mu.Unlock()

	if slot.status != Executed {
		return 0, false
	}

	slot.status = Committed
	committed := s.commitIndex
	s.commitIndex++

	if s.commitIndex == s.chunkSize {
		s.doneMarker.Store(true)
	}

	return committed, true
}

// HaltScheduler decrements the commit cursor by one — signalling that the most
// recently committed index is in fact excluded from the final block, e.g. because
// an external policy (a gas/size limit, a sequencer decision) cut the chunk short —
// and then halts the scheduler. It panics if no transaction has been committed yet.
func (h *CommitHandle) HaltScheduler() {
	s := h.scheduler

	if s.commitIndex <= 0 {
		panic("blockifier: commit index underflow")
	}
	s.commitIndex--
	s.Halt()
}
