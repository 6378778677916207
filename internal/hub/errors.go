package hub

import "errors"

// Domain-specific errors for hub operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrRequestFailed is returned when a Maker API request cannot be
	// completed at the network level.
	ErrRequestFailed = errors.New("hub: request failed")

	// ErrResponseError is returned when the hub answers with a non-2xx
	// status. The wrapped message carries the response body text.
	ErrResponseError = errors.New("hub: response error")

	// ErrInvalidAlarmState is returned when an HSM command value does not
	// normalise to a canonical alarm state.
	ErrInvalidAlarmState = errors.New("hub: invalid alarm state")

	// ErrClosed is returned when an operation is attempted on a closed hub.
	ErrClosed = errors.New("hub: closed")
)
