package nodes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/hublink/internal/event"
	"github.com/nerrad567/hublink/internal/hub"
)

// HsmNode tracks Hub Safety Monitor events and status.
type HsmNode struct {
	hub  *hub.Hub
	send Sender

	mu      sync.Mutex
	current string

	closeOnce sync.Once
	subs      []*event.Subscription
}

// NewHsmNode subscribes to the hsm topic. A hub reboot triggers a status
// refetch so the tracked state catches up on changes missed while the hub
// was down.
func NewHsmNode(h *hub.Hub, send Sender) *HsmNode {
	n := &HsmNode{hub: h, send: send}
	n.subs = append(n.subs,
		h.Bus().Subscribe(event.TopicHSM, n.handle),
		h.Bus().Subscribe(event.TopicSystemStart, func(event.Event) {
			go n.resync()
		}),
	)
	return n
}

func (n *HsmNode) handle(ev event.Event) {
	if ev.Name == "hsmStatus" {
		n.mu.Lock()
		n.current = ev.ValueString()
		n.mu.Unlock()
	}

	// Alert cancellation does not re-broadcast the status; fetch it so the
	// tracked state catches up.
	if ev.Name == "hsmAlert" && ev.ValueString() == "cancel" {
		go n.refreshStatus()
	}

	n.send(Message{Topic: ev.Name, Payload: ev})
}

func (n *HsmNode) refreshStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := n.hub.Client().Hsm(ctx)
	if err != nil {
		return
	}
	n.mu.Lock()
	n.current = status
	n.mu.Unlock()
}

// resync refetches the HSM status after a reboot and emits a status
// message only when the value desynchronized.
func (n *HsmNode) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n.mu.Lock()
	before := n.current
	n.mu.Unlock()

	status, err := n.hub.Client().Hsm(ctx)
	if err != nil {
		return
	}
	n.mu.Lock()
	n.current = status
	n.mu.Unlock()
	if status != before {
		n.send(Message{Topic: "hsmStatus", Payload: event.Event{Name: "hsmStatus", Value: status}})
	}
}

// Current returns the last observed HSM status. Empty until the first
// status event arrives or Refresh is called.
func (n *HsmNode) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Refresh fetches the HSM status from the hub and stores it.
func (n *HsmNode) Refresh(ctx context.Context) error {
	status, err := n.hub.Client().Hsm(ctx)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.current = status
	n.mu.Unlock()
	return nil
}

// Close cancels the subscriptions. Idempotent.
func (n *HsmNode) Close() {
	n.closeOnce.Do(func() {
		for _, sub := range n.subs {
			sub.Cancel()
		}
	})
}

// HsmSetterNode sends alarm state commands to Hub Safety Monitor.
type HsmSetterNode struct {
	hub *hub.Hub
}

// NewHsmSetterNode creates an HSM setter.
func NewHsmSetterNode(h *hub.Hub) *HsmSetterNode {
	return &HsmSetterNode{hub: h}
}

// Set normalises value and sends the canonical state. Input that matches
// no synonym reports an error through done instead of reaching the hub.
func (n *HsmSetterNode) Set(ctx context.Context, value string, done Done) {
	state := hub.NormalizeAlarmState(value)
	if state == hub.AlarmStateInvalid {
		done(fmt.Errorf("%w: %q", hub.ErrInvalidAlarmState, value))
		return
	}
	done(n.hub.Client().SetHsm(ctx, state))
}
