package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hublink/internal/infrastructure/config"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Inbound hub events, only in webhook transport mode
	if s.hub.Transport() == config.TransportWebhook {
		r.Post(s.hub.WebhookPath(), s.hub.WebhookHandler())
	}

	r.Get("/health", s.handleHealth)

	// Admin proxy endpoints for flow editors probing a hub
	r.Route("/hubitat", func(r chi.Router) {
		r.Get("/devices", s.handleProxyDevices)
		r.Get("/devices/{id}", s.handleProxyDevice)
		r.Get("/devices/{id}/commands", s.handleProxyDeviceCommands)
		r.Post("/configure", s.handleConfigure)
	})

	return r
}

// handleHealth returns the server health status, including the event
// transport state and cache population.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"transport":  string(s.hub.Transport()),
		"connection": s.hub.State().String(),
		"devices":    s.hub.Cache().Len(),
	})
}
