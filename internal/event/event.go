package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is the Maker API event envelope carried by both webhook push and
// WebSocket push. Events are transient: they are dispatched and never stored.
//
// The three logical families are distinguished by Name and DeviceID:
// device events (DeviceID carries a concrete id), mode events
// (Name == "mode"), HSM events (Name in the hsm allow-list), and location
// events (DeviceID explicitly null on the wire).
type Event struct {
	Name            string    `json:"name"`
	Value           any       `json:"value"`
	DeviceID        DeviceRef `json:"deviceId"`
	DisplayName     string    `json:"displayName,omitempty"`
	DescriptionText string    `json:"descriptionText,omitempty"`
}

// DeviceRef models the deviceId field of the wire envelope, which may be a
// concrete id (string or number), an explicit JSON null, or absent entirely.
// The distinction matters: explicit null is the only signal the hub gives
// for location events.
type DeviceRef struct {
	// ID is the device identifier, normalised to a string.
	ID string

	// Null reports that the field was present and explicitly null.
	Null bool

	// Present reports that the field appeared in the payload at all.
	Present bool
}

// Ref returns a DeviceRef for a concrete device id.
func Ref(id string) DeviceRef {
	return DeviceRef{ID: id, Present: true}
}

// NullRef returns a DeviceRef for an explicit wire null.
func NullRef() DeviceRef {
	return DeviceRef{Null: true, Present: true}
}

// HasID reports whether the reference carries a concrete device id.
func (r DeviceRef) HasID() bool {
	return r.Present && !r.Null && r.ID != ""
}

// UnmarshalJSON accepts a JSON string, number, or null.
func (r *DeviceRef) UnmarshalJSON(data []byte) error {
	r.Present = true
	if bytes.Equal(data, []byte("null")) {
		r.Null = true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.ID = s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		r.ID = n.String()
		return nil
	}

	return fmt.Errorf("event: deviceId is neither string, number, nor null: %s", data)
}

// MarshalJSON emits the id as a string, or null when no id is carried.
func (r DeviceRef) MarshalJSON() ([]byte, error) {
	if !r.HasID() {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// ValueString returns the raw value as a string when it is one, and ""
// otherwise. Convenience for callers that only handle string wire values.
func (e Event) ValueString() string {
	s, _ := e.Value.(string)
	return s
}
