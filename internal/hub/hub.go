package hub

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/hublink/internal/device"
	"github.com/nerrad567/hublink/internal/event"
	"github.com/nerrad567/hublink/internal/infrastructure/config"
)

// ConnectionState describes the event transport's link to the hub.
type ConnectionState int32

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// Hub is the connectivity core for one Hubitat hub.
//
// It owns the Maker API client, the device cache, the event bus, and the
// inbound event transport (websocket client or webhook receiver). Events
// from the transport flow through Dispatch, which updates the cache and
// fans out to bus topics.
type Hub struct {
	cfg      config.HubConfig
	client   *Client
	cache    *device.Cache
	bus      *event.Bus
	throttle *Throttle
	logger   Logger

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// New assembles a hub from configuration.
// A nil logger disables logging.
func New(cfg *config.Config, logger Logger) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	throttle := NewThrottle(cfg.Throttle.PoolSize, cfg.Throttle.CommandDelay())
	client := NewClient(cfg.Hub, cfg.GetRequestTimeout(), throttle, logger)
	return &Hub{
		cfg:      cfg.Hub,
		client:   client,
		cache:    device.NewCache(client, cfg.GetEntryTTL(), logger),
		bus:      event.NewBus(),
		throttle: throttle,
		logger:   logger,
	}
}

// Bus returns the event bus for subscriber registration.
func (h *Hub) Bus() *event.Bus { return h.bus }

// Cache returns the device cache.
func (h *Hub) Cache() *device.Cache { return h.cache }

// Client returns the Maker API client.
func (h *Hub) Client() *Client { return h.client }

// State returns the current transport connection state.
func (h *Hub) State() ConnectionState {
	return ConnectionState(h.state.Load())
}

func (h *Hub) setState(s ConnectionState) {
	h.state.Store(int32(s))
}

// Start begins event intake.
//
// In websocket mode it launches the reconnecting socket loop in the
// background and returns immediately; webhook mode has nothing to start
// because events arrive through WebhookHandler. Start does not prefetch
// the device cache; the first device lookup populates it on demand.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	if h.cfg.Transport != config.TransportWebSocket {
		h.logger.Info("webhook transport active", "path", h.cfg.WebhookPath)
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	go func() {
		defer close(h.done)
		h.runWebSocket(runCtx)
	}()
	return nil
}

// Close stops event intake and waits for the transport loop to exit.
// Close is idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	cancel := h.cancel
	done := h.done
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	h.setState(StateDisconnected)
}

// Dispatch routes one hub event: the cache is updated first, then the
// event fans out to the catch-all topic and at most one category topic.
//
// Routing precedence: device events (any deviceId present) win over name
// matching, then mode, then hsm-prefixed names (only the allow-list fans
// out, the rest go nowhere), then location events (explicit null deviceId).
// Events matching none of these still reach the catch-all topic.
//
// A systemStart event triggers the resync replay and the systemStart
// topic first, then routes like any other event.
func (h *Hub) Dispatch(ctx context.Context, ev event.Event) {
	if ev.Name == event.TopicSystemStart {
		h.handleSystemStart(ctx, ev)
	}

	h.bus.Publish(event.TopicAll, ev)

	switch {
	case ev.DeviceID.HasID():
		h.cache.Update(ev)
		h.bus.Publish(event.DeviceTopic(ev.DeviceID.ID), ev)
	case ev.Name == "mode":
		h.bus.Publish(event.TopicMode, ev)
	case strings.HasPrefix(ev.Name, "hsm"):
		if IsHSMEventName(ev.Name) {
			h.bus.Publish(event.TopicHSM, ev)
		}
	case ev.DeviceID.Null:
		h.bus.Publish(event.TopicLocation, ev)
	}
}

// handleSystemStart reacts to a hub reboot notice. With auto refresh on
// and a populated cache, the fleet is refetched and one synthesized event
// per changed attribute is dispatched so subscribers catch up on state
// they missed while the hub was down. The systemStart event is published
// on its own topic before Dispatch resumes normal routing for it.
func (h *Hub) handleSystemStart(ctx context.Context, ev event.Event) {
	h.logger.Info("hub restart detected")

	if h.cfg.AutoRefresh && h.cache.Initialized() {
		events, err := h.cache.Resync(ctx)
		if err != nil {
			h.logger.Error("device resync failed", "error", err)
		} else {
			for _, synth := range events {
				h.Dispatch(ctx, synth)
			}
		}
	}

	h.bus.Publish(event.TopicSystemStart, ev)
}

// RegisterWebhook points the hub's Maker API at our webhook endpoint.
// Only meaningful in webhook transport mode.
func (h *Hub) RegisterWebhook(ctx context.Context, publicBase string) error {
	return h.client.SetWebhookURL(ctx, publicBase+h.cfg.WebhookPath)
}

// WebhookPath returns the configured inbound webhook route.
func (h *Hub) WebhookPath() string { return h.cfg.WebhookPath }

// Transport returns the configured event transport.
func (h *Hub) Transport() config.Transport { return h.cfg.Transport }
