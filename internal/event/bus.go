package event

import (
	"sync"

	"github.com/google/uuid"
)

// Handler is the callback signature for bus subscribers.
//
// Handlers are invoked synchronously, in the order events arrive from the
// transport. They should not block for extended periods.
type Handler func(Event)

// Bus is the in-process publish/subscribe channel connecting the
// connectivity core to capability nodes.
//
// There is no limit on subscriber count; hundreds of subscriptions per
// topic are expected on large flows.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]Handler
}

// Subscription is a handle for one registered handler.
type Subscription struct {
	bus   *Bus
	topic string
	id    uuid.UUID

	once sync.Once
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		topics: make(map[string]map[uuid.UUID]Handler),
	}
}

// Subscribe registers a handler for a topic and returns its Subscription.
// The handler starts receiving events published after registration.
func (b *Bus) Subscribe(topic string, handler Handler) *Subscription {
	sub := &Subscription{
		bus:   b,
		topic: topic,
		id:    uuid.New(),
	}

	b.mu.Lock()
	handlers, ok := b.topics[topic]
	if !ok {
		handlers = make(map[uuid.UUID]Handler)
		b.topics[topic] = handlers
	}
	handlers[sub.id] = handler
	b.mu.Unlock()

	return sub
}

// Cancel detaches the subscription. The handler receives no further events
// and no other side effects occur. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		if handlers, ok := s.bus.topics[s.topic]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.bus.topics, s.topic)
			}
		}
		s.bus.mu.Unlock()
	})
}

// Publish delivers an event to every handler subscribed to the topic.
//
// Handlers run synchronously on the caller's goroutine, which preserves
// transport arrival order for each subscriber. The handler snapshot is
// taken under the read lock and invoked outside it, so a handler may
// subscribe or cancel without deadlocking.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.topics[topic]))
	for _, h := range b.topics[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// SubscriberCount returns the number of handlers registered for a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
