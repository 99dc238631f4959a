package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// The bridge polls without a time-series recorder in that case.
	ErrDisabled = errors.New("influxdb: disabled")

	// ErrUnavailable is returned when the server does not answer /ping.
	ErrUnavailable = errors.New("influxdb: server unavailable")

	// ErrClosed is returned by HealthCheck once the recorder is closed.
	ErrClosed = errors.New("influxdb: recorder closed")
)
