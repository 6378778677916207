package device

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Vector3 is a three-axis attribute value (acceleration sensors and similar).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

var (
	// Three-axis form: [x:2,y:-4,z:1.5] with axes in any order.
	threeAxesRegexp = regexp.MustCompile(`(?i)^\[([xyz]:[^,]*),([xyz]:[^,]*),([xyz]:[^,]*)\]$`)

	// Two-element range form used by some thermostats: [42.5,24]
	rangeRegexp = regexp.MustCompile(`^\[([^,]*),([^,]*)\]$`)
)

// Logger is the minimal logging interface the device package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Caster converts raw Maker API wire values into typed values.
//
// Casting never fails: input that matches no known shape is passed through
// unchanged with a warning. The warning fires at most once per device so a
// chatty attribute cannot flood the log.
type Caster struct {
	logger Logger

	mu     sync.Mutex
	warned map[string]struct{}
}

// NewCaster creates a Caster logging through the given logger.
// A nil logger disables warnings.
func NewCaster(logger Logger) *Caster {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Caster{
		logger: logger,
		warned: make(map[string]struct{}),
	}
}

// Cast converts a raw wire value according to the attribute's declared
// data type. Non-string input is already typed and returned unchanged.
//
// Unrecognised data types, and VECTOR3 values matching no known shape,
// degrade to passthrough with a one-time-per-device warning.
func (c *Caster) Cast(deviceID, dataType string, raw any) any {
	value, ok := castValue(dataType, raw)
	if !ok {
		c.warnOnce(deviceID, dataType, raw)
	}
	return value
}

// warnOnce logs the unexpected dataType/value pair the first time it is
// seen for a device, and suppresses repeats.
func (c *Caster) warnOnce(deviceID, dataType string, raw any) {
	c.mu.Lock()
	_, seen := c.warned[deviceID]
	if !seen {
		c.warned[deviceID] = struct{}{}
	}
	c.mu.Unlock()

	if !seen {
		c.logger.Warn("unable to cast attribute value, passing through unchanged",
			"device_id", deviceID,
			"data_type", dataType,
			"value", raw,
		)
	}
}

// castValue does the actual conversion. The second return value reports
// whether the input matched a known shape; false means passthrough.
func castValue(dataType string, raw any) (any, bool) {
	value, isString := raw.(string)
	if !isString {
		// Already typed (JSON number, bool, null, synthesized event value).
		return raw, true
	}

	switch dataType {
	case DataTypeString, DataTypeEnum, DataTypeDate, DataTypeJSONObject:
		// Maker API always serialises these as strings already.
		return value, true
	case DataTypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	case DataTypeBool:
		return value == "true", true
	case DataTypeVector3:
		return castVector3(value)
	default:
		return value, false
	}
}

// castVector3 handles the VECTOR3 sub-cases in order: literal null, empty
// string, three-axis object, two-element range, then passthrough.
func castVector3(value string) (any, bool) {
	if value == "null" {
		return nil, true
	}
	if value == "" {
		return value, true
	}

	if m := threeAxesRegexp.FindStringSubmatch(value); m != nil {
		var vec Vector3
		for _, part := range m[1:] {
			axis, point, _ := strings.Cut(part, ":")
			f, err := strconv.ParseFloat(point, 64)
			if err != nil {
				f = math.NaN()
			}
			switch strings.ToLower(axis) {
			case "x":
				vec.X = f
			case "y":
				vec.Y = f
			case "z":
				vec.Z = f
			}
		}
		return vec, true
	}

	if m := rangeRegexp.FindStringSubmatch(value); m != nil {
		result := make([]float64, 0, 2)
		for _, part := range m[1:] {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				f = math.NaN()
			}
			result = append(result, f)
		}
		return result, true
	}

	return value, false
}
