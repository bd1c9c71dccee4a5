package blockifier

import "errors"

// Namespace prefixes every sentinel error message in this package.
const Namespace = "blockifier"

var (
	// ErrAlreadyStarted is returned by Runner.Start if called more than once.
	ErrAlreadyStarted = errors.New(Namespace + ": runner already started")
	// ErrCollaboratorPanicked wraps a recovered panic from an Executor, Validator,
	// or Committer call; see slot.go.
	ErrCollaboratorPanicked = errors.New(Namespace + ": collaborator panicked")

	errConfigNumWorkers = errors.New(Namespace + ": NumWorkers must be >= 1")
)
