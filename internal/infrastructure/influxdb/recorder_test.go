package influxdb

import (
	"context"
	"sync"
	"testing"

	"github.com/nerrad567/hublink/internal/device"
	"github.com/nerrad567/hublink/internal/event"
)

type fakeWriter struct {
	mu     sync.Mutex
	points []point
}

type point struct {
	deviceID  string
	attribute string
	value     float64
}

func (f *fakeWriter) WriteDeviceMetric(deviceID, attribute string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, point{deviceID, attribute, value})
}

func (f *fakeWriter) all() []point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]point(nil), f.points...)
}

type staticFetcher struct {
	fleet []device.RawDevice
}

func (s *staticFetcher) FetchDevices(context.Context) ([]device.RawDevice, error) {
	return s.fleet, nil
}

func (s *staticFetcher) FetchDevice(_ context.Context, id string) (device.RawDevice, error) {
	return s.fleet[0], nil
}

func newTestCache(t *testing.T) *device.Cache {
	t.Helper()
	cache := device.NewCache(&staticFetcher{fleet: []device.RawDevice{
		{
			ID:    "42",
			Name:  "multi",
			Label: "Multi Sensor",
			Attributes: []device.RawAttribute{
				{Name: "temperature", DataType: device.DataTypeNumber, CurrentValue: "21.5"},
				{Name: "contact", DataType: device.DataTypeBool, CurrentValue: "false"},
				{Name: "status", DataType: device.DataTypeEnum, CurrentValue: "active"},
			},
		},
	}}, 0, nil)
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	return cache
}

// dispatch mimics the core: cache update before fan-out.
func dispatch(cache *device.Cache, bus *event.Bus, ev event.Event) {
	cache.Update(ev)
	bus.Publish(event.TopicAll, ev)
}

func TestRecorderWritesNumericAttributes(t *testing.T) {
	cache := newTestCache(t)
	bus := event.NewBus()
	writer := &fakeWriter{}
	rec := NewRecorder(writer, bus, cache)
	defer rec.Close()

	dispatch(cache, bus, event.Event{Name: "temperature", Value: "22.75", DeviceID: event.Ref("42")})
	dispatch(cache, bus, event.Event{Name: "contact", Value: "true", DeviceID: event.Ref("42")})
	dispatch(cache, bus, event.Event{Name: "status", Value: "inactive", DeviceID: event.Ref("42")})

	points := writer.all()
	if len(points) != 2 {
		t.Fatalf("wrote %d points, want 2 (ENUM skipped): %v", len(points), points)
	}
	if points[0] != (point{"42", "temperature", 22.75}) {
		t.Errorf("points[0] = %v", points[0])
	}
	if points[1] != (point{"42", "contact", 1.0}) {
		t.Errorf("points[1] = %v, want bool as 1", points[1])
	}
}

func TestRecorderSkipsUntrackedAndNaN(t *testing.T) {
	cache := newTestCache(t)
	bus := event.NewBus()
	writer := &fakeWriter{}
	rec := NewRecorder(writer, bus, cache)
	defer rec.Close()

	// Unknown device and malformed number both produce no points.
	dispatch(cache, bus, event.Event{Name: "temperature", Value: "21", DeviceID: event.Ref("999")})
	dispatch(cache, bus, event.Event{Name: "temperature", Value: "not-a-number", DeviceID: event.Ref("42")})

	if points := writer.all(); len(points) != 0 {
		t.Errorf("wrote %v, want none", points)
	}
}

func TestRecorderCloseDetaches(t *testing.T) {
	cache := newTestCache(t)
	bus := event.NewBus()
	writer := &fakeWriter{}
	rec := NewRecorder(writer, bus, cache)

	rec.Close()
	rec.Close()

	dispatch(cache, bus, event.Event{Name: "temperature", Value: "25", DeviceID: event.Ref("42")})
	if points := writer.all(); len(points) != 0 {
		t.Errorf("wrote %v after Close, want none", points)
	}
}
