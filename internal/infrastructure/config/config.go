package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hublink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Cache    CacheConfig    `yaml:"cache"`
	API      APIConfig      `yaml:"api"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Transport selects how hub events reach hublink.
type Transport string

// Supported event transports.
const (
	// TransportWebSocket maintains a persistent client connection to the
	// hub's /eventsocket endpoint with automatic reconnection.
	TransportWebSocket Transport = "websocket"

	// TransportWebhook exposes an HTTP endpoint the hub POSTs events to.
	// No connection liveness signalling is available in this mode.
	TransportWebhook Transport = "webhook"
)

// HubConfig contains Maker API connection settings for one hub.
type HubConfig struct {
	Host        string    `yaml:"host"`
	Port        int       `yaml:"port"`
	UseTLS      bool      `yaml:"use_tls"`
	AppID       string    `yaml:"app_id"`
	Token       string    `yaml:"token"`
	Transport   Transport `yaml:"transport"`
	WebhookPath string    `yaml:"webhook_path"`

	// AutoRefresh re-fetches the device fleet and replays missed attribute
	// changes when the hub reports a systemStart event (hub reboot).
	AutoRefresh bool `yaml:"auto_refresh"`

	// RequestTimeout bounds each outbound Maker API call, in seconds.
	RequestTimeout int `yaml:"request_timeout"`
}

// BaseURL returns the Maker API base URL for this hub, without the access token.
func (h HubConfig) BaseURL() string {
	scheme := "http"
	if h.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d/apps/api/%s", scheme, h.Host, h.Port, h.AppID)
}

// EventSocketURL returns the hub's event socket URL.
func (h HubConfig) EventSocketURL() string {
	scheme := "ws"
	if h.UseTLS {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/eventsocket", scheme, h.Host, h.Port)
}

// ThrottleConfig bounds outbound Maker API traffic.
// The embedded hub hardware handles a small number of concurrent requests;
// four simultaneous requests have proven safe in practice.
type ThrottleConfig struct {
	PoolSize int `yaml:"pool_size"`

	// CommandDelayMs defers slot release after each command, throttling
	// command rate in addition to concurrency. Zero disables the delay.
	CommandDelayMs int `yaml:"command_delay_ms"`
}

// CommandDelay returns the post-command settling delay as a Duration.
func (t ThrottleConfig) CommandDelay() time.Duration {
	return time.Duration(t.CommandDelayMs) * time.Millisecond
}

// CacheConfig contains device cache settings.
type CacheConfig struct {
	// EntryTTL is the inactivity window, in seconds, after which a
	// lazily fetched device entry is invalidated. This is a staleness
	// workaround, not a correctness guarantee.
	EntryTTL int `yaml:"entry_ttl"`
}

// APIConfig contains HTTP server settings for the webhook and admin endpoints.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// MaxBodyBytes limits inbound webhook payload size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MQTTConfig contains settings for the optional MQTT event mirror.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTReconnectConfig contains reconnection backoff settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains settings for the optional attribute telemetry writer.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HUBLINK_SECTION_KEY
// For example: HUBLINK_HUB_HOST, HUBLINK_HUB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Port:           80,
			Transport:      TransportWebSocket,
			WebhookPath:    "/hubitat/webhook",
			AutoRefresh:    true,
			RequestTimeout: 30,
		},
		Throttle: ThrottleConfig{
			PoolSize: 4,
		},
		Cache: CacheConfig{
			EntryTTL: 30,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 9480,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			MaxBodyBytes: 5 << 20,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hublink",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HUBLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("HUBLINK_HUB_HOST"); v != "" {
		cfg.Hub.Host = v
	}
	if v := os.Getenv("HUBLINK_HUB_APP_ID"); v != "" {
		cfg.Hub.AppID = v
	}
	if v := os.Getenv("HUBLINK_HUB_TOKEN"); v != "" {
		cfg.Hub.Token = v
	}

	// MQTT
	if v := os.Getenv("HUBLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HUBLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HUBLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// A hub section missing host, port, app id, or token is a fatal
// configuration error: no requests are attempted for that server.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hub validation - all four identity fields are required
	if c.Hub.Host == "" {
		errs = append(errs, "hub.host is required")
	}
	if c.Hub.Port < 1 || c.Hub.Port > 65535 {
		errs = append(errs, "hub.port must be between 1 and 65535")
	}
	if c.Hub.AppID == "" {
		errs = append(errs, "hub.app_id is required")
	}
	if c.Hub.Token == "" {
		errs = append(errs, "hub.token is required (set HUBLINK_HUB_TOKEN environment variable)")
	}
	switch c.Hub.Transport {
	case TransportWebSocket, TransportWebhook:
	default:
		errs = append(errs, "hub.transport must be \"websocket\" or \"webhook\"")
	}
	if c.Hub.Transport == TransportWebhook && !strings.HasPrefix(c.Hub.WebhookPath, "/") {
		c.Hub.WebhookPath = "/" + c.Hub.WebhookPath
	}

	// Throttle validation
	if c.Throttle.PoolSize < 1 {
		errs = append(errs, "throttle.pool_size must be at least 1")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRequestTimeout returns the Maker API request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Hub.RequestTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetEntryTTL returns the lazy cache entry TTL as a Duration.
func (c *Config) GetEntryTTL() time.Duration {
	return time.Duration(c.Cache.EntryTTL) * time.Second
}
