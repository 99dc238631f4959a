package command

import "errors"

// Domain errors for the command dispatcher.
var (
	// ErrUnknownCommand is returned for a token with no hub operation.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrMissingArgument is returned when a required positional argument is absent.
	ErrMissingArgument = errors.New("command: missing argument")

	// ErrRejected is returned when the hub answered but did not accept the operation.
	ErrRejected = errors.New("command: operation not accepted")
)
