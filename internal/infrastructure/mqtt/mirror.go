package mqtt

import (
	"sync"

	"github.com/nerrad567/hublink/internal/event"
)

// publisher is the broker-facing surface the mirror needs.
type publisher interface {
	PublishJSON(topic string, v any) error
}

// Mirror republishes bus events to MQTT topics.
//
// Device events come from the catch-all topic so one subscription covers
// every device; mode, hsm, and location events come from their category
// topics, reusing the core's routing instead of reimplementing it.
// Publish failures are logged and dropped.
type Mirror struct {
	pub    publisher
	logger Logger

	closeOnce sync.Once
	subs      []*event.Subscription
}

// NewMirror attaches a mirror to the bus.
func NewMirror(pub publisher, bus *event.Bus, logger Logger) *Mirror {
	m := &Mirror{pub: pub, logger: logger}
	m.subs = append(m.subs,
		bus.Subscribe(event.TopicAll, m.handleAll),
		bus.Subscribe(event.TopicMode, m.republish(Topics{}.Mode())),
		bus.Subscribe(event.TopicHSM, m.republish(Topics{}.HSM())),
		bus.Subscribe(event.TopicLocation, m.republish(Topics{}.Location())),
	)
	return m
}

// handleAll mirrors device events from the catch-all topic.
func (m *Mirror) handleAll(ev event.Event) {
	if !ev.DeviceID.HasID() {
		return
	}
	m.publish(Topics{}.DeviceEvent(ev.DeviceID.ID), ev)
}

// republish returns a handler that mirrors events to a fixed topic.
func (m *Mirror) republish(topic string) event.Handler {
	return func(ev event.Event) {
		m.publish(topic, ev)
	}
}

func (m *Mirror) publish(topic string, ev event.Event) {
	if err := m.pub.PublishJSON(topic, ev); err != nil && m.logger != nil {
		m.logger.Warn("event mirror publish failed", "topic", topic, "error", err)
	}
}

// Close detaches the mirror from the bus. Idempotent.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		for _, sub := range m.subs {
			sub.Cancel()
		}
	})
}
