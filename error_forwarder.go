package blockifier

import (
	"context"
	"sync"
)

// errorForwarder consumes fatal collaborator errors (in) and, on the first one,
// cancels the Runner's internal context, halts the scheduler, and forwards exactly
// one error to the outward errors channel (out). If out is not immediately
// writable, it uses a detached sender goroutine tracked by sendWG that will either
// deliver later or drop on closeCh. After closeCh is closed, it drains any
// remaining internal errors and exits.
//
// The owner (Runner) controls lifecycle: errorForwarder does not close any channels.
type errorForwarder struct {
	in      <-chan error    // internal errors
	out     chan<- error    // outward errors
	closeCh <-chan struct{} // closed during Runner.Close()
	cancel  context.CancelFunc
	halt    func()
	sendWG  *sync.WaitGroup // tracks detached sender goroutines
}

func newErrorForwarder(
	in <-chan error, out chan<- error, closeCh <-chan struct{},
	cancel context.CancelFunc, halt func(), sendWG *sync.WaitGroup,
) *errorForwarder {
	return &errorForwarder{in: in, out: out, closeCh: closeCh, cancel: cancel, halt: halt, sendWG: sendWG}
}

func (f *errorForwarder) run() {
	forwardedFirst := false
	for {
		select {
		case e := <-f.in:
			// Cancel and halt first so the dispatch loop stops promptly.
			f.cancel()
			f.halt()
			if !forwardedFirst {
				forwardedFirst = true
				select {
				case f.out <- e:
					// forwarded synchronously
				default:
					f.sendWG.Add(1)
					go func(err error) {
						defer f.sendWG.Done()
						select {
						case f.out <- err:
							// delivered when reader appears
						case <-f.closeCh:
							// drop if closing
						}
					}(e)
				}
			}
		case <-f.closeCh:
			// Drain any remaining internal errors (drop them), then exit.
			for {
				select {
				case <-f.in:
					// drop
				default:
					return
				}
			}
		}
	}
}
