package device

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attribute data types declared by the Maker API.
//
// The hub serialises most attribute values as strings regardless of the
// declared type; the Caster converts them to native Go values.
const (
	DataTypeString     = "STRING"
	DataTypeEnum       = "ENUM"
	DataTypeDate       = "DATE"
	DataTypeJSONObject = "JSON_OBJECT"
	DataTypeNumber     = "NUMBER"
	DataTypeBool       = "BOOL"
	DataTypeVector3    = "VECTOR3"
)

// Device is the normalised model of one hub device.
//
// Attributes are keyed by name; duplicate names in the raw payload collapse
// to a single entry with the first occurrence winning. This is a fixed
// contract, not an accident of map construction.
type Device struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Label      string                `json:"label"`
	Attributes map[string]*Attribute `json:"attributes"`
}

// Attribute is a single named, typed property of a device.
//
// Attributes are mutated in place when a matching device event arrives,
// never recreated: subscribers holding a pointer observe every update.
// Consumers that hand attribute data out of the process must deep-copy
// at their boundary.
type Attribute struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`

	// Value is the typed value derived from the raw wire value.
	Value any `json:"value"`

	// CurrentValue mirrors Value. Deprecated alias kept for consumers of
	// the original Maker API field name.
	CurrentValue any `json:"currentValue"`

	// DeviceID is a back-reference to the owning device, not ownership.
	DeviceID string `json:"deviceId"`
}

// DeepCopy returns a copy of the device sharing no pointers with the original.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	out := &Device{
		ID:         d.ID,
		Name:       d.Name,
		Label:      d.Label,
		Attributes: make(map[string]*Attribute, len(d.Attributes)),
	}
	for name, attr := range d.Attributes {
		out.Attributes[name] = attr.DeepCopy()
	}
	return out
}

// DeepCopy returns a copy of the attribute. Value and CurrentValue are
// copied via JSON round-trip when they hold reference types.
func (a *Attribute) DeepCopy() *Attribute {
	if a == nil {
		return nil
	}
	copied := *a
	copied.Value = deepCopyValue(a.Value)
	copied.CurrentValue = deepCopyValue(a.CurrentValue)
	return &copied
}

// deepCopyValue copies container values; scalars are returned as-is.
func deepCopyValue(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, int, Vector3:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// RawDevice is the unnormalised device payload returned by the Maker API.
type RawDevice struct {
	ID         FlexID         `json:"id"`
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	Attributes []RawAttribute `json:"attributes"`
}

// RawAttribute is one entry of a raw device's attribute list.
type RawAttribute struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	CurrentValue any    `json:"currentValue"`
}

// FlexID accepts a JSON string or number and normalises it to a string.
// The Maker API is inconsistent about device id types across endpoints.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}

	return fmt.Errorf("device: id is neither string nor number: %s", data)
}

// Normalize converts a raw Maker API payload into the canonical model:
// attributes are de-duplicated by name (first occurrence wins), the raw
// currentValue is cast to the typed value, and each attribute is tagged
// with its owning device id.
func (r RawDevice) Normalize(caster *Caster) *Device {
	id := string(r.ID)
	dev := &Device{
		ID:         id,
		Name:       r.Name,
		Label:      r.Label,
		Attributes: make(map[string]*Attribute, len(r.Attributes)),
	}
	for _, raw := range r.Attributes {
		if _, seen := dev.Attributes[raw.Name]; seen {
			continue
		}
		value := caster.Cast(id, raw.DataType, raw.CurrentValue)
		dev.Attributes[raw.Name] = &Attribute{
			Name:         raw.Name,
			DataType:     raw.DataType,
			Value:        value,
			CurrentValue: value,
			DeviceID:     id,
		}
	}
	return dev
}
