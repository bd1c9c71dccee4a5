package blockifier

import "sync"

// lifecycleCoordinator encapsulates the shutdown sequence for Runner. It is a
// wiring helper: it doesn't own channels; it orchestrates cancellation, waits,
// draining, and channel closures in a deterministic order.
//
// Close() is safe for concurrent calls; the sequence executes exactly once.
type lifecycleCoordinator struct {
	cancel          func()
	waitWorkers     func()
	closeCh         chan struct{}
	forwarderWG     *sync.WaitGroup
	errorsSendWG    *sync.WaitGroup
	drainInternal   func()
	closeAttemptsIn func()
	waitReorderer   func()
	closeCommits    func()
	closeErrors     func()

	once sync.Once
}

func newLifecycleCoordinator(
	cancel func(),
	waitWorkers func(),
	closeCh chan struct{},
	forwarderWG *sync.WaitGroup,
	errorsSendWG *sync.WaitGroup,
	drainInternal func(),
	closeAttemptsIn func(),
	waitReorderer func(),
	closeCommits func(),
	closeErrors func(),
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		cancel:          cancel,
		waitWorkers:     waitWorkers,
		closeCh:         closeCh,
		forwarderWG:     forwarderWG,
		errorsSendWG:    errorsSendWG,
		drainInternal:   drainInternal,
		closeAttemptsIn: closeAttemptsIn,
		waitReorderer:   waitReorderer,
		closeCommits:    closeCommits,
		closeErrors:     closeErrors,
	}
}

// Close executes the shutdown sequence exactly once:
// 1) cancel internal context
// 2) wait for dispatcher worker goroutines to return (the only attempt-event producers)
// 3) close closeCh to stop detached senders/forwarders
// 4) close the attempts-in channel, so a reorderer goroutine tracked in forwarderWG
//    can observe it and return
// 5) wait forwarderWG (error forwarder and, if enabled, the reorderer) and errorsSendWG
// 6) drain remaining internal errors best-effort
// 7) close commits, then errors
//
// closeAttemptsIn must run before forwarderWG.Wait(): the reorderer's run loop only
// returns when attemptsIn is closed, and it is one of the goroutines forwarderWG
// waits for, so waiting on forwarderWG first would deadlock whenever
// PreserveAttemptOrder is enabled.
func (lc *lifecycleCoordinator) Close() {
	lc.once.Do(func() {
		if lc.cancel != nil {
			lc.cancel()
		}
		if lc.waitWorkers != nil {
			lc.waitWorkers()
		}
		if lc.closeCh != nil {
			close(lc.closeCh)
		}
		if lc.closeAttemptsIn != nil {
			lc.closeAttemptsIn()
		}
		if lc.forwarderWG != nil {
			lc.forwarderWG.Wait()
		}
		if lc.errorsSendWG != nil {
			lc.errorsSendWG.Wait()
		}
		if lc.drainInternal != nil {
			lc.drainInternal()
		}
		if lc.waitReorderer != nil {
			lc.waitReorderer()
		}
		if lc.closeCommits != nil {
			lc.closeCommits()
		}
		if lc.closeErrors != nil {
			lc.closeErrors()
		}
	})
}
