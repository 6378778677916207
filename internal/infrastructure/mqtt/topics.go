package mqtt

// topicPrefix is the root of every topic this service publishes.
const topicPrefix = "hublink"

// Topics builds the mirror's topic names.
type Topics struct{}

// SystemStatus is the online/offline status topic (retained, LWT).
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// DeviceEvent is the per-device event topic.
func (Topics) DeviceEvent(deviceID string) string {
	return topicPrefix + "/event/device/" + deviceID
}

// Mode is the location mode event topic.
func (Topics) Mode() string {
	return topicPrefix + "/event/mode"
}

// HSM is the Hub Safety Monitor event topic.
func (Topics) HSM() string {
	return topicPrefix + "/event/hsm"
}

// Location is the location event topic.
func (Topics) Location() string {
	return topicPrefix + "/event/location"
}
