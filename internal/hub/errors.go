package hub

import "errors"

// Domain errors for the hub client package.
var (
	// ErrNotConfigured is returned when no hub host has been set.
	ErrNotConfigured = errors.New("hub: host not configured")

	// ErrConnectionFailed is returned when the hub cannot be reached.
	ErrConnectionFailed = errors.New("hub: connection failed")

	// ErrInvalidResponse is returned when the hub replies with data that
	// is not valid JSON or lacks the expected structure.
	ErrInvalidResponse = errors.New("hub: invalid response")

	// ErrInvalidTemperature is returned when a device reports NaN or an
	// infinite temperature.
	ErrInvalidTemperature = errors.New("hub: invalid temperature")

	// ErrInvalidRequest is returned when a raw request is not valid JSON.
	ErrInvalidRequest = errors.New("hub: invalid request")

	// ErrUnknownEntry is returned when a named stat is absent from an update.
	ErrUnknownEntry = errors.New("hub: unknown entry")
)
