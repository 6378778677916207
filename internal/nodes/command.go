package nodes

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/hublink/internal/hub"
)

// CommandNode sends commands to one device and forwards the hub's response.
type CommandNode struct {
	hub      *hub.Hub
	deviceID string
	send     Sender
}

// NewCommandNode creates a command node bound to a device.
func NewCommandNode(h *hub.Hub, deviceID string, send Sender) *CommandNode {
	return &CommandNode{hub: h, deviceID: deviceID, send: send}
}

// Execute sends command with optional comma-separated args. The raw
// response body is forwarded as a message on success; failure is reported
// through done only.
func (n *CommandNode) Execute(ctx context.Context, command, args string, done Done) {
	if command == "" {
		done(ErrMissingCommand)
		return
	}

	body, err := n.hub.Client().SendCommand(ctx, n.deviceID, command, args)
	if err != nil {
		done(err)
		return
	}
	if n.send != nil {
		n.send(Message{Topic: command, Payload: json.RawMessage(body)})
	}
	done(nil)
}

// RequestNode performs arbitrary Maker API GETs under the hub's app base.
type RequestNode struct {
	hub  *hub.Hub
	send Sender
}

// NewRequestNode creates a request node.
func NewRequestNode(h *hub.Hub, send Sender) *RequestNode {
	return &RequestNode{hub: h, send: send}
}

// Execute fetches path and forwards the raw response body as a message.
func (n *RequestNode) Execute(ctx context.Context, path string, done Done) {
	body, err := n.hub.Client().Request(ctx, path)
	if err != nil {
		done(err)
		return
	}
	if n.send != nil {
		n.send(Message{Topic: path, Payload: json.RawMessage(body)})
	}
	done(nil)
}
