package hub

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/hublink/internal/event"
)

// webhookPayload is the envelope the hub POSTs to its registered URL.
type webhookPayload struct {
	Content *event.Event `json:"content"`
}

// WebhookHandler returns the HTTP handler for inbound hub event POSTs.
//
// The hub wraps each event in a {"content": ...} envelope. A well-formed
// event is dispatched and acknowledged with 204 No Content; a missing or
// malformed envelope is rejected with 400 so hub-side logs surface the
// problem. A panic while dispatching yields 500 instead of tearing down
// the server.
func (h *Hub) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic in webhook dispatch", "panic", rec)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()

		var payload webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			h.logger.Warn("malformed webhook payload", "error", err)
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}
		if payload.Content == nil {
			h.logger.Warn("webhook payload missing content")
			http.Error(w, "missing content", http.StatusBadRequest)
			return
		}

		h.Dispatch(r.Context(), *payload.Content)
		w.WriteHeader(http.StatusNoContent)
	}
}
