package hub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/hublink/internal/event"
	"github.com/nerrad567/hublink/internal/infrastructure/config"
)

// makerServer fakes the Maker API endpoints dispatch tests need, with a
// mutable switch value so resync tests can change state between fetches.
type makerServer struct {
	mu          sync.Mutex
	switchValue string
}

func (m *makerServer) setSwitch(value string) {
	m.mu.Lock()
	m.switchValue = value
	m.mu.Unlock()
}

func (m *makerServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		sw := m.switchValue
		m.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/devices/all"):
			fmt.Fprintf(w, `[
				{"id": 42, "name": "switch-device", "label": "Desk Lamp",
				 "attributes": [
					{"name": "switch", "dataType": "ENUM", "currentValue": %q},
					{"name": "level", "dataType": "NUMBER", "currentValue": "50"}
				 ]}
			]`, sw)
		default:
			http.NotFound(w, r)
		}
	}
}

func newHubForConfig(hubCfg config.HubConfig) *Hub {
	cfg := &config.Config{
		Hub:      hubCfg,
		Throttle: config.ThrottleConfig{PoolSize: 4},
	}
	return New(cfg, nil)
}

func newTestHub(t *testing.T, ts *httptest.Server) *Hub {
	t.Helper()
	return newHubForConfig(testHubConfig(t, ts))
}

// collect subscribes to a topic and appends every delivery to a slice.
func collect(bus *event.Bus, topic string) *[]event.Event {
	var events []event.Event
	bus.Subscribe(topic, func(ev event.Event) {
		events = append(events, ev)
	})
	return &events
}

func TestDispatchDeviceEvent(t *testing.T) {
	maker := &makerServer{switchValue: "off"}
	ts := httptest.NewServer(maker.handler())
	defer ts.Close()

	h := newTestHub(t, ts)
	if err := h.Cache().FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	all := collect(h.Bus(), event.TopicAll)
	dev := collect(h.Bus(), event.DeviceTopic("42"))
	other := collect(h.Bus(), event.DeviceTopic("7"))

	h.Dispatch(context.Background(), event.Event{
		Name: "switch", Value: "on", DeviceID: event.Ref("42"),
	})

	if len(*all) != 1 || len(*dev) != 1 {
		t.Fatalf("deliveries: all=%d device=%d, want 1 and 1", len(*all), len(*dev))
	}
	if len(*other) != 0 {
		t.Errorf("unrelated device topic received %d events", len(*other))
	}
	if got := h.Cache().Get("42").Attributes["switch"].Value; got != "on" {
		t.Errorf("cached switch = %v, want on (cache updated before fan-out)", got)
	}
}

func TestDispatchModeEvent(t *testing.T) {
	ts := httptest.NewServer((&makerServer{switchValue: "off"}).handler())
	defer ts.Close()
	h := newTestHub(t, ts)

	all := collect(h.Bus(), event.TopicAll)
	mode := collect(h.Bus(), event.TopicMode)
	location := collect(h.Bus(), event.TopicLocation)

	h.Dispatch(context.Background(), event.Event{
		Name: "mode", Value: "Night", DeviceID: event.NullRef(),
	})

	if len(*all) != 1 || len(*mode) != 1 {
		t.Fatalf("deliveries: all=%d mode=%d, want 1 and 1", len(*all), len(*mode))
	}
	if len(*location) != 0 {
		t.Error("mode event leaked to the location topic")
	}
}

func TestDispatchHSMEvent(t *testing.T) {
	ts := httptest.NewServer((&makerServer{switchValue: "off"}).handler())
	defer ts.Close()
	h := newTestHub(t, ts)

	hsm := collect(h.Bus(), event.TopicHSM)
	location := collect(h.Bus(), event.TopicLocation)

	h.Dispatch(context.Background(), event.Event{
		Name: "hsmStatus", Value: "armedAway", DeviceID: event.NullRef(),
	})
	// Not on the allow-list: reaches no category topic at all.
	h.Dispatch(context.Background(), event.Event{
		Name: "hsmSetArm", Value: "armAway", DeviceID: event.NullRef(),
	})

	if len(*hsm) != 1 {
		t.Fatalf("hsm deliveries = %d, want 1", len(*hsm))
	}
	if len(*location) != 0 {
		t.Errorf("location deliveries = %d, want 0 (off-list hsm names are dropped)", len(*location))
	}
}

func TestDispatchLocationEvent(t *testing.T) {
	ts := httptest.NewServer((&makerServer{switchValue: "off"}).handler())
	defer ts.Close()
	h := newTestHub(t, ts)

	location := collect(h.Bus(), event.TopicLocation)

	// Explicit null deviceId routes to location.
	h.Dispatch(context.Background(), event.Event{
		Name: "sunrise", DeviceID: event.NullRef(),
	})
	// Absent deviceId does not.
	h.Dispatch(context.Background(), event.Event{Name: "sunrise"})

	if len(*location) != 1 {
		t.Errorf("location deliveries = %d, want 1", len(*location))
	}
}

func TestDispatchUnroutedEventReachesCatchAll(t *testing.T) {
	ts := httptest.NewServer((&makerServer{switchValue: "off"}).handler())
	defer ts.Close()
	h := newTestHub(t, ts)

	all := collect(h.Bus(), event.TopicAll)

	h.Dispatch(context.Background(), event.Event{Name: "zigbeeStatus", Value: "up"})

	if len(*all) != 1 {
		t.Errorf("catch-all deliveries = %d, want 1", len(*all))
	}
}

func TestDispatchSystemStartResyncsAndReplays(t *testing.T) {
	maker := &makerServer{switchValue: "off"}
	ts := httptest.NewServer(maker.handler())
	defer ts.Close()

	h := newTestHub(t, ts)
	if err := h.Cache().FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	dev := collect(h.Bus(), event.DeviceTopic("42"))
	start := collect(h.Bus(), event.TopicSystemStart)
	all := collect(h.Bus(), event.TopicAll)

	// The hub rebooted and the switch flipped while the link was down.
	maker.setSwitch("on")
	h.Dispatch(context.Background(), event.Event{Name: "systemStart", Value: "2026-08-31"})

	if len(*dev) != 1 {
		t.Fatalf("device deliveries = %d, want 1 synthesized event", len(*dev))
	}
	if (*dev)[0].Value != "on" {
		t.Errorf("synthesized value = %v, want on", (*dev)[0].Value)
	}
	if len(*start) != 1 {
		t.Errorf("systemStart deliveries = %d, want 1", len(*start))
	}
	// Catch-all sees the synthesized event and systemStart itself.
	if len(*all) != 2 {
		t.Errorf("catch-all deliveries = %d, want 2", len(*all))
	}
	if got := h.Cache().Get("42").Attributes["switch"].Value; got != "on" {
		t.Errorf("cached switch = %v after resync, want on", got)
	}
}

func TestDispatchSystemStartRoutesAsLocationEvent(t *testing.T) {
	ts := httptest.NewServer((&makerServer{switchValue: "off"}).handler())
	defer ts.Close()
	h := newTestHub(t, ts)

	start := collect(h.Bus(), event.TopicSystemStart)
	location := collect(h.Bus(), event.TopicLocation)
	all := collect(h.Bus(), event.TopicAll)

	// Wire-shaped systemStart carries an explicit null deviceId, so after
	// the reboot handling it must still route to location subscribers.
	h.Dispatch(context.Background(), event.Event{
		Name: "systemStart", Value: "2026-08-31", DeviceID: event.NullRef(),
	})

	if len(*start) != 1 {
		t.Errorf("systemStart deliveries = %d, want 1", len(*start))
	}
	if len(*location) != 1 {
		t.Errorf("location deliveries = %d, want 1", len(*location))
	}
	if len(*all) != 1 {
		t.Errorf("catch-all deliveries = %d, want 1", len(*all))
	}
}

func TestDispatchSystemStartWithoutAutoRefresh(t *testing.T) {
	maker := &makerServer{switchValue: "off"}
	ts := httptest.NewServer(maker.handler())
	defer ts.Close()

	cfg := &config.Config{
		Hub:      testHubConfig(t, ts),
		Throttle: config.ThrottleConfig{PoolSize: 4},
	}
	cfg.Hub.AutoRefresh = false
	h := New(cfg, nil)
	if err := h.Cache().FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	dev := collect(h.Bus(), event.DeviceTopic("42"))
	start := collect(h.Bus(), event.TopicSystemStart)

	maker.setSwitch("on")
	h.Dispatch(context.Background(), event.Event{Name: "systemStart"})

	if len(*dev) != 0 {
		t.Errorf("device deliveries = %d, want 0 with auto refresh off", len(*dev))
	}
	if len(*start) != 1 {
		t.Errorf("systemStart deliveries = %d, want 1", len(*start))
	}
	if got := h.Cache().Get("42").Attributes["switch"].Value; got != "off" {
		t.Errorf("cached switch = %v, want stale off with auto refresh off", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ts := httptest.NewServer((&makerServer{switchValue: "off"}).handler())
	defer ts.Close()
	h := newTestHub(t, ts)

	h.Close()
	h.Close()

	if err := h.Start(context.Background()); err != ErrClosed {
		t.Errorf("Start() after Close() error = %v, want ErrClosed", err)
	}
}
