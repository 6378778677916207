package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the initial broker connection
	// cannot be established.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned when an operation requires an active
	// connection but the client is disconnected.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrPublishFailed is returned when a message cannot be published.
	ErrPublishFailed = errors.New("mqtt: publish failed")
)
