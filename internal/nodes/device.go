package nodes

import (
	"context"
	"sync"

	"github.com/nerrad567/hublink/internal/device"
	"github.com/nerrad567/hublink/internal/event"
	"github.com/nerrad567/hublink/internal/hub"
)

// DeviceNode tracks one device's attribute events.
//
// An optional attribute filter limits which events pass through. Outgoing
// attribute payloads are deep copies: the host runtime may mutate them
// without corrupting the shared cache.
type DeviceNode struct {
	hub        *hub.Hub
	deviceID   string
	attributes map[string]struct{}
	send       Sender

	closeOnce sync.Once
	sub       *event.Subscription
}

// DeviceMessage is the payload a DeviceNode emits per matching event.
type DeviceMessage struct {
	Event     event.Event       `json:"event"`
	Attribute *device.Attribute `json:"attribute,omitempty"`
}

// NewDeviceNode subscribes to the device's topic. An empty attribute list
// tracks every attribute.
func NewDeviceNode(h *hub.Hub, deviceID string, attributes []string, send Sender) *DeviceNode {
	n := &DeviceNode{
		hub:      h,
		deviceID: deviceID,
		send:     send,
	}
	if len(attributes) > 0 {
		n.attributes = make(map[string]struct{}, len(attributes))
		for _, name := range attributes {
			n.attributes[name] = struct{}{}
		}
	}
	n.sub = h.Bus().Subscribe(event.DeviceTopic(deviceID), n.handle)
	return n
}

func (n *DeviceNode) handle(ev event.Event) {
	if n.attributes != nil {
		if _, tracked := n.attributes[ev.Name]; !tracked {
			return
		}
	}

	msg := DeviceMessage{Event: ev}
	if dev := n.hub.Cache().Get(n.deviceID); dev != nil {
		// The cache entry was updated before fan-out; copy it at the
		// output boundary.
		msg.Attribute = dev.Attributes[ev.Name].DeepCopy()
	}
	n.send(Message{Topic: ev.Name, Payload: msg})
}

// Current returns a deep copy of the tracked device, fetching it lazily
// when the cache does not hold it yet.
func (n *DeviceNode) Current(ctx context.Context) (*device.Device, error) {
	dev, err := n.hub.Cache().FetchOne(ctx, n.deviceID)
	if err != nil {
		return nil, err
	}
	return dev.DeepCopy(), nil
}

// Close cancels the subscription. Idempotent.
func (n *DeviceNode) Close() {
	n.closeOnce.Do(n.sub.Cancel)
}
