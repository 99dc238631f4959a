package poller

import "errors"

// Domain errors for the poll cycle engine.
var (
	// ErrAlreadyRunning is returned when Run is called on an engine whose loop is active.
	ErrAlreadyRunning = errors.New("poller: already running")

	// ErrInterrupted is returned when a cycle is cancelled while persisting.
	ErrInterrupted = errors.New("poller: cycle interrupted")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("poller: missing dependency")
)
