package nodes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/hublink/internal/event"
	"github.com/nerrad567/hublink/internal/hub"
)

// ModeNode tracks the hub's location mode.
type ModeNode struct {
	hub  *hub.Hub
	send Sender

	mu      sync.Mutex
	current string

	closeOnce sync.Once
	subs      []*event.Subscription
}

// NewModeNode subscribes to the mode topic. A hub reboot triggers a
// refetch so the tracked mode catches up on changes missed while the hub
// was down.
func NewModeNode(h *hub.Hub, send Sender) *ModeNode {
	n := &ModeNode{hub: h, send: send}
	n.subs = append(n.subs,
		h.Bus().Subscribe(event.TopicMode, func(ev event.Event) {
			n.mu.Lock()
			n.current = ev.ValueString()
			n.mu.Unlock()
			n.send(Message{Topic: ev.Name, Payload: ev})
		}),
		h.Bus().Subscribe(event.TopicSystemStart, func(event.Event) {
			go n.resync()
		}),
	)
	return n
}

// resync refetches the active mode after a reboot and emits a mode message
// only when the value desynchronized.
func (n *ModeNode) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n.mu.Lock()
	before := n.current
	n.mu.Unlock()

	if err := n.Refresh(ctx); err != nil {
		return
	}

	n.mu.Lock()
	after := n.current
	n.mu.Unlock()
	if after != before {
		n.send(Message{Topic: "mode", Payload: event.Event{Name: "mode", Value: after}})
	}
}

// Current returns the last observed mode name. Empty until the first mode
// event arrives or Refresh is called.
func (n *ModeNode) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Refresh fetches the active mode from the hub and stores it.
func (n *ModeNode) Refresh(ctx context.Context) error {
	modes, err := n.hub.Client().Modes(ctx)
	if err != nil {
		return err
	}
	for _, mode := range modes {
		if mode.Active {
			n.mu.Lock()
			n.current = mode.Name
			n.mu.Unlock()
			return nil
		}
	}
	return nil
}

// Close cancels the subscriptions. Idempotent.
func (n *ModeNode) Close() {
	n.closeOnce.Do(func() {
		for _, sub := range n.subs {
			sub.Cancel()
		}
	})
}

// ModeSetterNode activates location modes by name or id.
type ModeSetterNode struct {
	hub *hub.Hub
}

// NewModeSetterNode creates a mode setter.
func NewModeSetterNode(h *hub.Hub) *ModeSetterNode {
	return &ModeSetterNode{hub: h}
}

// Set resolves target against the hub's mode list, matching the id first
// and then the name, and activates the match. An unmatched target reports
// ErrUnknownMode through done.
func (n *ModeSetterNode) Set(ctx context.Context, target string, done Done) {
	modes, err := n.hub.Client().Modes(ctx)
	if err != nil {
		done(err)
		return
	}

	for _, mode := range modes {
		if mode.ID.String() == target || mode.Name == target {
			done(n.hub.Client().SetMode(ctx, mode.ID.String()))
			return
		}
	}
	done(fmt.Errorf("%w: %q", ErrUnknownMode, target))
}
