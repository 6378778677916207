package influxdb

import (
	"math"
	"sync"

	"github.com/nerrad567/hublink/internal/device"
	"github.com/nerrad567/hublink/internal/event"
)

// metricWriter is the storage-facing surface the recorder needs.
type metricWriter interface {
	WriteDeviceMetric(deviceID string, attribute string, value float64)
}

// Recorder converts numeric device events into telemetry points.
//
// NUMBER attributes are written as-is; BOOL attributes as 0/1. Everything
// else is skipped, as are NUMBER values that failed casting (NaN).
type Recorder struct {
	writer metricWriter
	cache  *device.Cache

	closeOnce sync.Once
	sub       *event.Subscription
}

// NewRecorder attaches a recorder to the bus.
//
// The cache supplies each attribute's declared data type; events for
// devices or attributes the cache does not track are skipped.
func NewRecorder(writer metricWriter, bus *event.Bus, cache *device.Cache) *Recorder {
	r := &Recorder{writer: writer, cache: cache}
	r.sub = bus.Subscribe(event.TopicAll, r.handle)
	return r
}

func (r *Recorder) handle(ev event.Event) {
	if !ev.DeviceID.HasID() {
		return
	}
	dev := r.cache.Get(ev.DeviceID.ID)
	if dev == nil {
		return
	}
	attr, ok := dev.Attributes[ev.Name]
	if !ok {
		return
	}

	// The cache updates before fan-out, so attr.Value holds the cast
	// result for this event.
	switch attr.DataType {
	case device.DataTypeNumber:
		value, ok := attr.Value.(float64)
		if !ok || math.IsNaN(value) {
			return
		}
		r.writer.WriteDeviceMetric(dev.ID, attr.Name, value)
	case device.DataTypeBool:
		value := 0.0
		if b, ok := attr.Value.(bool); ok && b {
			value = 1.0
		}
		r.writer.WriteDeviceMetric(dev.ID, attr.Name, value)
	}
}

// Close detaches the recorder from the bus. Idempotent.
func (r *Recorder) Close() {
	r.closeOnce.Do(r.sub.Cancel)
}
