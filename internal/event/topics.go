package event

// Topic names published on the Bus.
//
// Every inbound hub event is published to TopicAll, then to at most one of
// the family topics according to the dispatch rule in the hub package.
// Connection status topics fire only in WebSocket transport mode.
const (
	// TopicAll receives every hub event, unfiltered.
	TopicAll = "event"

	// TopicMode receives hub-wide mode change events.
	TopicMode = "mode"

	// TopicHSM receives Hub Safety Monitor events (hsmStatus, hsmAlert, hsmRules).
	TopicHSM = "hsm"

	// TopicLocation receives location events (explicit null deviceId).
	TopicLocation = "location"

	// TopicSystemStart fires when the hub reports a reboot.
	TopicSystemStart = "systemStart"

	// TopicWebSocketOpened fires when the event socket connects.
	TopicWebSocketOpened = "websocket-opened"

	// TopicWebSocketClosed fires when the event socket disconnects.
	TopicWebSocketClosed = "websocket-closed"

	// TopicWebSocketError fires on event socket errors.
	TopicWebSocketError = "websocket-error"
)

// DeviceTopic returns the per-device topic for the given device id.
//
// Example: DeviceTopic("42") returns "device.42".
func DeviceTopic(deviceID string) string {
	return "device." + deviceID
}
