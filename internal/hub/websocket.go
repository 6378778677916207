package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hublink/internal/event"
)

const (
	// watchdogTimeout declares the connection dead when neither a message
	// nor a ping arrives within it. The hub pings roughly once a minute,
	// so two missed pings plus slack means the link is gone.
	watchdogTimeout = 130 * time.Second

	// controlWriteWait bounds pong control frame writes.
	controlWriteWait = 10 * time.Second
)

// runWebSocket maintains the event socket connection until the context is
// cancelled. Each dropped or failed connection schedules a retry from the
// backoff table; a successful session resets the failure count so the next
// drop retries quickly again.
func (h *Hub) runWebSocket(ctx context.Context) {
	failures := 0
	for {
		if ctx.Err() != nil {
			h.setState(StateDisconnected)
			return
		}

		h.setState(StateConnecting)
		if h.serveSocket(ctx) {
			failures = 0
		}
		if ctx.Err() != nil {
			h.setState(StateDisconnected)
			return
		}

		delay := reconnectDelay(failures)
		failures++
		h.logger.Debug("event socket reconnect scheduled",
			"delay", delay.String(),
			"failures", failures,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			h.setState(StateDisconnected)
			return
		}
	}
}

// serveSocket runs one connection lifecycle: dial, read until the link
// drops, clean up. It reports whether a connection was established at all,
// which drives the backoff reset.
func (h *Hub) serveSocket(ctx context.Context) bool {
	socketURL := h.cfg.EventSocketURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		if ctx.Err() == nil {
			h.setState(StateError)
			h.logger.Warn("event socket dial failed", "url", socketURL, "error", err)
			h.bus.Publish(event.TopicWebSocketError, event.Event{
				Name:  event.TopicWebSocketError,
				Value: err.Error(),
			})
		}
		return false
	}

	h.setState(StateConnected)
	h.logger.Info("event socket connected", "url", socketURL)
	h.bus.Publish(event.TopicWebSocketOpened, event.Event{Name: event.TopicWebSocketOpened})

	// Unblock the read loop on shutdown.
	sessionDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-sessionDone:
		}
	}()
	defer close(sessionDone)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(watchdogTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(watchdogTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWriteWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("event socket closed", "error", err)
				h.setState(StateDisconnected)
				h.bus.Publish(event.TopicWebSocketClosed, event.Event{Name: event.TopicWebSocketClosed})
			}
			return true
		}
		conn.SetReadDeadline(time.Now().Add(watchdogTimeout))

		var ev event.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			h.logger.Debug("dropping unparseable event frame", "error", err)
			continue
		}
		h.Dispatch(ctx, ev)
	}
}
