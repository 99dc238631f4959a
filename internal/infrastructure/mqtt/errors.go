package mqtt

import "errors"

// Errors returned by Connect and Publish. Publish failures are recorded
// against the poll cycle; they never stop the loop.
var (
	// ErrNotConnected means the bus is down or reconnecting. Publish does
	// not queue the snapshot.
	ErrNotConnected = errors.New("mqtt: bus not connected")

	// ErrConnectionFailed means the first connect to the broker failed.
	// Paho is never handed a session in that case, so nothing reconnects.
	ErrConnectionFailed = errors.New("mqtt: broker connect failed")

	// ErrPublishFailed wraps a broker rejection, a publish timeout or an
	// oversized snapshot.
	ErrPublishFailed = errors.New("mqtt: snapshot publish failed")

	// ErrInvalidQoS rejects a QoS outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
