package blockifier

import (
	"errors"
	"fmt"
)

// TxMetaError exposes correlation metadata for a fatal collaborator error: which
// transaction index and incarnation it happened on.
type TxMetaError interface {
	error
	Unwrap() error
	TxIndex() (int, bool)
	Incarnation() (int, bool)
}

type txTaggedError struct {
	err         error
	index       int
	incarnation int
	hasIncarn   bool
}

func newTxTaggedError(err error, index int, incarnation int, hasIncarn bool) error {
	if err == nil {
		return nil
	}
	return &txTaggedError{err: err, index: index, incarnation: incarnation, hasIncarn: hasIncarn}
}

func (e *txTaggedError) Error() string { return e.err.Error() }
func (e *txTaggedError) Unwrap() error { return e.err }

func (e *txTaggedError) TxIndex() (int, bool) { return e.index, true }

func (e *txTaggedError) Incarnation() (int, bool) {
	if !e.hasIncarn {
		return 0, false
	}
	return e.incarnation, true
}

func (e *txTaggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "tx(index=%d,incarnation=%d): %+v", e.index, e.incarnation, e.err)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractTxIndex returns the transaction index from err if present.
func ExtractTxIndex(err error) (int, bool) {
	var tme TxMetaError
	if errors.As(err, &tme) {
		return tme.TxIndex()
	}
	return 0, false
}

// ExtractIncarnation returns the incarnation number from err if present.
func ExtractIncarnation(err error) (int, bool) {
	var tme TxMetaError
	if errors.As(err, &tme) {
		return tme.Incarnation()
	}
	return 0, false
}
