package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nerrad567/hublink/internal/device"
	"github.com/nerrad567/hublink/internal/infrastructure/config"
)

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client issues Maker API requests against one hub.
//
// Every request passes through the shared throttle, and every request
// carries the access token as a query parameter. The token must never
// appear in logs; only the request path is logged.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	throttle *Throttle
	logger   Logger
}

// Command describes one command a device supports, with its argument types.
type Command struct {
	Command string   `json:"command"`
	Type    []string `json:"type,omitempty"`
}

// Mode is one location mode as reported by the hub.
type Mode struct {
	ID     json.Number `json:"id"`
	Name   string      `json:"name"`
	Active bool        `json:"active"`
}

// NewClient creates a Maker API client for the configured hub.
// A nil logger disables logging.
func NewClient(cfg config.HubConfig, timeout time.Duration, throttle *Throttle, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		baseURL:  cfg.BaseURL(),
		token:    cfg.Token,
		http:     &http.Client{Timeout: timeout},
		throttle: throttle,
		logger:   logger,
	}
}

// get performs one throttled Maker API request and returns the response body.
// delayed selects the post-command settling release for device commands.
func (c *Client) get(ctx context.Context, path string, delayed bool) ([]byte, error) {
	if err := c.throttle.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	release := c.throttle.Release
	if delayed {
		release = c.throttle.ReleaseDelayed
	}
	defer release()

	c.logger.Debug("maker api request", "path", path)

	reqURL := c.baseURL + path + "?access_token=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s: %s", ErrResponseError, path, resp.Status, string(body))
	}

	return body, nil
}

// FetchDevices returns the full device fleet with current attribute values.
func (c *Client) FetchDevices(ctx context.Context) ([]device.RawDevice, error) {
	body, err := c.get(ctx, "/devices/all", false)
	if err != nil {
		return nil, err
	}
	var raws []device.RawDevice
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("%w: decoding device list: %w", ErrResponseError, err)
	}
	return raws, nil
}

// FetchDevice returns one device's details with current attribute values.
func (c *Client) FetchDevice(ctx context.Context, id string) (device.RawDevice, error) {
	body, err := c.get(ctx, "/devices/"+url.PathEscape(id), false)
	if err != nil {
		return device.RawDevice{}, err
	}
	var raw device.RawDevice
	if err := json.Unmarshal(body, &raw); err != nil {
		return device.RawDevice{}, fmt.Errorf("%w: decoding device %s: %w", ErrResponseError, id, err)
	}
	return raw, nil
}

// DeviceCommands returns the commands a device supports.
func (c *Client) DeviceCommands(ctx context.Context, id string) ([]Command, error) {
	body, err := c.get(ctx, "/devices/"+url.PathEscape(id)+"/commands", false)
	if err != nil {
		return nil, err
	}
	var commands []Command
	if err := json.Unmarshal(body, &commands); err != nil {
		return nil, fmt.Errorf("%w: decoding commands for device %s: %w", ErrResponseError, id, err)
	}
	return commands, nil
}

// SendCommand sends a command to a device, with optional arguments.
// Multiple arguments are passed comma-separated in args, as the Maker API
// expects. The throttle slot is released after the settling delay so rapid
// command bursts cannot swamp the hub.
func (c *Client) SendCommand(ctx context.Context, id, command, args string) ([]byte, error) {
	path := "/devices/" + url.PathEscape(id) + "/" + url.PathEscape(command)
	if args != "" {
		path += "/" + url.PathEscape(args)
	}
	return c.get(ctx, path, true)
}

// Modes returns the hub's location modes.
func (c *Client) Modes(ctx context.Context) ([]Mode, error) {
	body, err := c.get(ctx, "/modes", false)
	if err != nil {
		return nil, err
	}
	var modes []Mode
	if err := json.Unmarshal(body, &modes); err != nil {
		return nil, fmt.Errorf("%w: decoding modes: %w", ErrResponseError, err)
	}
	return modes, nil
}

// SetMode activates the location mode with the given id.
func (c *Client) SetMode(ctx context.Context, id string) error {
	_, err := c.get(ctx, "/modes/"+url.PathEscape(id), false)
	return err
}

// Hsm returns the current Hub Safety Monitor status.
func (c *Client) Hsm(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/hsm", false)
	if err != nil {
		return "", err
	}
	var status struct {
		Hsm string `json:"hsm"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return "", fmt.Errorf("%w: decoding hsm status: %w", ErrResponseError, err)
	}
	return status.Hsm, nil
}

// SetHsm sends a canonical alarm state to Hub Safety Monitor.
// The state must already be normalised; AlarmStateInvalid is rejected here
// rather than forwarded to the hub.
func (c *Client) SetHsm(ctx context.Context, state AlarmState) error {
	if state == AlarmStateInvalid || state == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAlarmState, state)
	}
	_, err := c.get(ctx, "/hsm/"+url.PathEscape(string(state)), false)
	return err
}

// Request performs an arbitrary Maker API GET under the hub's base URL and
// returns the raw response body. The path must start with a slash.
func (c *Client) Request(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, path, false)
}

// SetWebhookURL registers the URL the hub POSTs events to.
func (c *Client) SetWebhookURL(ctx context.Context, postURL string) error {
	_, err := c.get(ctx, "/postURL/"+url.PathEscape(postURL), false)
	return err
}
