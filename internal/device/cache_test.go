package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/hublink/internal/event"
)

// mockFetcher is a test implementation of Fetcher with call counting and
// an optional gate to hold fetches open.
type mockFetcher struct {
	mu      sync.Mutex
	fleet   []RawDevice
	err     error
	gate    chan struct{} // when non-nil, fetches block until closed
	allHits int32
	oneHits int32
}

func (m *mockFetcher) FetchDevices(_ context.Context) ([]RawDevice, error) {
	atomic.AddInt32(&m.allHits, 1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.fleet, nil
}

func (m *mockFetcher) FetchDevice(_ context.Context, id string) (RawDevice, error) {
	atomic.AddInt32(&m.oneHits, 1)
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return RawDevice{}, m.err
	}
	for _, raw := range m.fleet {
		if string(raw.ID) == id {
			return raw, nil
		}
	}
	return RawDevice{}, ErrNotFound
}

func (m *mockFetcher) setFleet(fleet []RawDevice) {
	m.mu.Lock()
	m.fleet = fleet
	m.mu.Unlock()
}

func testFleet() []RawDevice {
	return []RawDevice{
		{
			ID:    "42",
			Name:  "switch-device",
			Label: "Desk Lamp",
			Attributes: []RawAttribute{
				{Name: "switch", DataType: DataTypeEnum, CurrentValue: "off"},
				{Name: "level", DataType: DataTypeNumber, CurrentValue: "50"},
			},
		},
		{
			ID:    "7",
			Name:  "sensor",
			Label: "Hall Sensor",
			Attributes: []RawAttribute{
				{Name: "temperature", DataType: DataTypeNumber, CurrentValue: "21.5"},
			},
		},
	}
}

func TestFetchAllPopulatesCache(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)

	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	if !cache.Initialized() {
		t.Error("Initialized() = false after FetchAll")
	}
	dev := cache.Get("42")
	if dev == nil {
		t.Fatal("Get(42) = nil")
	}
	if dev.Attributes["level"].Value != 50.0 {
		t.Errorf("level = %v, want 50", dev.Attributes["level"].Value)
	}
}

func TestFetchAllIdempotentWhenInitialized(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)

	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("second FetchAll() error = %v", err)
	}

	if hits := atomic.LoadInt32(&fetcher.allHits); hits != 1 {
		t.Errorf("HTTP calls = %d, want 1", hits)
	}
}

func TestFetchAllConcurrentCallersShareOneFetch(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet(), gate: make(chan struct{})}
	cache := NewCache(fetcher, 0, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = cache.FetchAll(context.Background())
		}(i)
	}

	// Let both callers reach the fetch before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d error = %v", i, err)
		}
	}
	if hits := atomic.LoadInt32(&fetcher.allHits); hits != 1 {
		t.Errorf("HTTP calls = %d, want 1", hits)
	}
}

func TestFetchAllErrorAllowsRetry(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("connection refused")}
	cache := NewCache(fetcher, 0, nil)

	err := cache.FetchAll(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("FetchAll() error = %v, want ErrFetchFailed", err)
	}
	if cache.Initialized() {
		t.Error("Initialized() = true after failed fetch")
	}

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.fleet = testFleet()
	fetcher.mu.Unlock()

	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("retry FetchAll() error = %v", err)
	}
	if !cache.Initialized() {
		t.Error("Initialized() = false after successful retry")
	}
}

func TestFetchOneConcurrentCallersShareOneFetch(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet(), gate: make(chan struct{})}
	cache := NewCache(fetcher, 0, nil)

	var wg sync.WaitGroup
	results := make([]*Device, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			dev, err := cache.FetchOne(context.Background(), "42")
			if err != nil {
				t.Errorf("caller %d error = %v", n, err)
				return
			}
			results[n] = dev
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	if hits := atomic.LoadInt32(&fetcher.oneHits); hits != 1 {
		t.Errorf("HTTP calls = %d, want 1", hits)
	}
	if results[0] == nil || results[0] != results[1] {
		t.Error("concurrent callers resolved to different devices")
	}
}

func TestFetchOneUnknownDevice(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)

	_, err := cache.FetchOne(context.Background(), "999")
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("FetchOne(999) error = %v, want ErrFetchFailed", err)
	}
}

func TestFetchOneEntryExpires(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 30*time.Millisecond, nil)

	if _, err := cache.FetchOne(context.Background(), "42"); err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if cache.Get("42") == nil {
		t.Fatal("entry missing right after fetch")
	}

	time.Sleep(80 * time.Millisecond)
	if cache.Get("42") != nil {
		t.Error("lazily fetched entry survived its TTL")
	}
}

func TestUpdateMutatesAttributeInPlace(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	// Hold the attribute pointer across the update: in-place mutation is
	// the contract that keeps subscriber references valid.
	attr := cache.Get("42").Attributes["switch"]
	if attr.Value != "off" {
		t.Fatalf("initial switch = %v", attr.Value)
	}

	cache.Update(event.Event{Name: "switch", Value: "on", DeviceID: event.Ref("42")})

	if attr.Value != "on" {
		t.Errorf("attribute pointer value = %v, want on", attr.Value)
	}
	if attr.CurrentValue != "on" {
		t.Errorf("CurrentValue alias = %v, want on", attr.CurrentValue)
	}
}

func TestUpdateCastsWithAttributeDataType(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	cache.Update(event.Event{Name: "level", Value: "75", DeviceID: event.Ref("42")})

	if got := cache.Get("42").Attributes["level"].Value; got != 75.0 {
		t.Errorf("level = %v (%T), want float64 75", got, got)
	}
}

func TestUpdateUntrackedDeviceIsNoOp(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	cache.Update(event.Event{Name: "switch", Value: "on", DeviceID: event.Ref("999")})

	if cache.Len() != 2 {
		t.Errorf("Len() = %d after untracked update, want 2", cache.Len())
	}
	if cache.Get("999") != nil {
		t.Error("untracked update created a cache entry")
	}
}

func TestResyncSynthesizesEventsForChangedAttributes(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	// The hub rebooted and device 42's switch flipped while we were away.
	updated := testFleet()
	updated[0].Attributes[0].CurrentValue = "on"
	fetcher.setFleet(updated)

	events, err := cache.Resync(context.Background())
	if err != nil {
		t.Fatalf("Resync() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("synthesized %d events, want 1: %v", len(events), events)
	}
	ev := events[0]
	if ev.Name != "switch" || ev.Value != "on" {
		t.Errorf("event = %+v, want switch=on", ev)
	}
	if !ev.DeviceID.HasID() || ev.DeviceID.ID != "42" {
		t.Errorf("event device = %+v, want 42", ev.DeviceID)
	}
}

func TestResyncFailureKeepsErrorAndAllowsRetry(t *testing.T) {
	fetcher := &mockFetcher{fleet: testFleet()}
	cache := NewCache(fetcher, 0, nil)
	if err := cache.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	fetcher.mu.Lock()
	fetcher.err = errors.New("hub still booting")
	fetcher.mu.Unlock()

	if _, err := cache.Resync(context.Background()); err == nil {
		t.Fatal("Resync() = nil, want error")
	}
	if cache.Initialized() {
		t.Error("Initialized() = true after failed resync")
	}
}
