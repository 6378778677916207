package nodes

import "errors"

var (
	// ErrUnknownMode is returned when a mode setter input matches no mode
	// configured on the hub.
	ErrUnknownMode = errors.New("nodes: unknown mode")

	// ErrUnknownDevice is returned when a node references a device the hub
	// does not report.
	ErrUnknownDevice = errors.New("nodes: unknown device")

	// ErrMissingCommand is returned when a command message has no command.
	ErrMissingCommand = errors.New("nodes: missing command")
)
