package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device id is not known to the hub.
	ErrNotFound = errors.New("device: not found")

	// ErrFetchFailed wraps transport failures while fetching devices.
	ErrFetchFailed = errors.New("device: fetch failed")
)
