package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hublink/internal/hub"
	"github.com/nerrad567/hublink/internal/infrastructure/config"
)

// proxyTimeout bounds each admin proxy request to the hub.
const proxyTimeout = 15 * time.Second

// proxyClient builds a transient Maker API client from query parameters.
// Flow editors probe arbitrary hubs while configuring, so the connection
// details come from the request, not from our own hub config. Returns
// false when any required parameter is missing or malformed.
func (s *Server) proxyClient(r *http.Request) (*hub.Client, bool) {
	q := r.URL.Query()
	host := q.Get("host")
	portStr := q.Get("port")
	appID := q.Get("appId")
	token := q.Get("token")
	if host == "" || portStr == "" || appID == "" || token == "" {
		return nil, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, false
	}

	cfg := config.HubConfig{
		Host:   host,
		Port:   port,
		UseTLS: q.Get("useTls") == "true",
		AppID:  appID,
		Token:  token,
	}
	return hub.NewClient(cfg, proxyTimeout, hub.NewThrottle(4, 0), s.logger), true
}

// handleProxyDevices proxies the hub's device list, sorted by label.
func (s *Server) handleProxyDevices(w http.ResponseWriter, r *http.Request) {
	client, ok := s.proxyClient(r)
	if !ok {
		writeNotFound(w, "missing hub connection parameters")
		return
	}

	devices, err := client.FetchDevices(r.Context())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sort.Slice(devices, func(i, j int) bool {
		return strings.ToLower(devices[i].Label) < strings.ToLower(devices[j].Label)
	})
	writeJSON(w, http.StatusOK, devices)
}

// handleProxyDevice proxies one device's details.
func (s *Server) handleProxyDevice(w http.ResponseWriter, r *http.Request) {
	client, ok := s.proxyClient(r)
	if !ok {
		writeNotFound(w, "missing hub connection parameters")
		return
	}

	dev, err := client.FetchDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleProxyDeviceCommands proxies one device's command list.
func (s *Server) handleProxyDeviceCommands(w http.ResponseWriter, r *http.Request) {
	client, ok := s.proxyClient(r)
	if !ok {
		writeNotFound(w, "missing hub connection parameters")
		return
	}

	commands, err := client.DeviceCommands(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, commands)
}

// configureRequest is the body of POST /hubitat/configure.
type configureRequest struct {
	// URL is the full webhook URL to register on the hub.
	URL string `json:"url"`
}

// handleConfigure registers our webhook URL on the configured hub so it
// starts POSTing events.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	if err := s.hub.Client().SetWebhookURL(r.Context(), req.URL); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
