package nodes

import (
	"sync"

	"github.com/nerrad567/hublink/internal/event"
	"github.com/nerrad567/hublink/internal/hub"
)

// EventNode forwards every hub event to the host runtime, including the
// websocket lifecycle events.
type EventNode struct {
	send Sender

	closeOnce sync.Once
	subs      []*event.Subscription
}

// NewEventNode subscribes to the catch-all topic and the websocket
// lifecycle topics.
func NewEventNode(h *hub.Hub, send Sender) *EventNode {
	n := &EventNode{send: send}
	forward := func(ev event.Event) {
		n.send(Message{Topic: ev.Name, Payload: ev})
	}
	bus := h.Bus()
	n.subs = append(n.subs,
		bus.Subscribe(event.TopicAll, forward),
		bus.Subscribe(event.TopicWebSocketOpened, forward),
		bus.Subscribe(event.TopicWebSocketClosed, forward),
		bus.Subscribe(event.TopicWebSocketError, forward),
	)
	return n
}

// Close cancels all subscriptions. Idempotent.
func (n *EventNode) Close() {
	n.closeOnce.Do(func() {
		for _, sub := range n.subs {
			sub.Cancel()
		}
	})
}

// LocationNode forwards location events (explicit null deviceId) to the
// host runtime.
type LocationNode struct {
	send Sender

	closeOnce sync.Once
	sub       *event.Subscription
}

// NewLocationNode subscribes to the location topic.
func NewLocationNode(h *hub.Hub, send Sender) *LocationNode {
	n := &LocationNode{send: send}
	n.sub = h.Bus().Subscribe(event.TopicLocation, func(ev event.Event) {
		n.send(Message{Topic: ev.Name, Payload: ev})
	})
	return n
}

// Close cancels the subscription. Idempotent.
func (n *LocationNode) Close() {
	n.closeOnce.Do(n.sub.Cancel)
}
