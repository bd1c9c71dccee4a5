package blockifier

import "sync"

// TransactionStatus is the per-index state of the scheduler's state machine.
//
// ReadyToExecute -> Executing -> Executed -> Committed
//
//	^                              |
//	+------------ Aborting <-------+
type TransactionStatus int

const (
	// ReadyToExecute is the initial state: no incarnation is in flight.
	ReadyToExecute TransactionStatus = iota
	// Executing means exactly one worker is currently running an incarnation.
	Executing
	// Executed means an incarnation has completed and its writes are visible in the
	// versioned store; the read-set is awaiting validation.
	Executed
	// Aborting means a validator has claimed the right to invalidate this incarnation.
	Aborting
	// Committed is terminal: the transaction is included in the output block.
	Committed
)

func (s TransactionStatus) String() string {
	switch s {
	case ReadyToExecute:
		return "ReadyToExecute"
	case Executing:
		return "Executing"
	case Executed:
		return "Executed"
	case Aborting:
		return "Aborting"
	case Committed:
		return "Committed"
	default:
		return "Unknown"
	}
}

// txSlot guards one transaction index's status behind its own mutex, so that the
// dispatcher hands each index to at most one executor and one validator at a time
// without contending on a single global lock.
type txSlot struct {
	mu     sync.Mutex
	status TransactionStatus
}
