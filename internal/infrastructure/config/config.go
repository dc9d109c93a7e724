package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Relay count bounds.
const (
	DefaultRelayCount = 8
	maxRelayCount     = 64
)

// Config is the root configuration structure for Relay Hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Relays    RelaysConfig    `yaml:"relays"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Panel     PanelConfig     `yaml:"panel"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	// Protocol is the URL scheme: tcp, ssl, ws or wss.
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	// Path is appended to websocket broker URLs (e.g. "/mqtt").
	Path string `yaml:"path"`
	// ClientID is generated from ClientIDPrefix when empty.
	ClientID       string `yaml:"client_id"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// RelaysConfig describes the fixed relay bank.
type RelaysConfig struct {
	Count int `yaml:"count"`
}

// ScheduleConfig contains schedule timer settings.
type ScheduleConfig struct {
	// Timezone is an IANA zone name or "Local".
	Timezone string `yaml:"timezone"`
}

// InfluxDBConfig contains InfluxDB connection settings for relay state telemetry.
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

// PanelConfig controls the static dashboard.
type PanelConfig struct {
	// Dir serves the dashboard from disk instead of the embedded copy.
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// A missing file is not an error when optional is true; the process then runs
// on defaults plus environment, which is how container deployments configure it.
//
// Environment variables follow the pattern RELAYHUB_SECTION_KEY. The bare
// MQTT_HOST, MQTT_PORT, MQTT_USERNAME, MQTT_PASSWORD, MQTT_PROTOCOL and PORT
// variables are honoured as well.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string, optional bool) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
		// defaults + env only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Protocol:       "wss",
				Path:           "/mqtt",
				ClientIDPrefix: "mqtt_dashboard",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Relays: RelaysConfig{
			Count: DefaultRelayCount,
		},
		Schedule: ScheduleConfig{
			Timezone: "Local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := firstEnv("RELAYHUB_MQTT_HOST", "MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := firstEnv("RELAYHUB_MQTT_PORT", "MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing MQTT port %q: %w", v, err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := firstEnv("RELAYHUB_MQTT_PROTOCOL", "MQTT_PROTOCOL"); v != "" {
		cfg.MQTT.Broker.Protocol = v
	}
	if v := firstEnv("RELAYHUB_MQTT_USERNAME", "MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := firstEnv("RELAYHUB_MQTT_PASSWORD", "MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("RELAYHUB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := firstEnv("RELAYHUB_API_PORT", "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing API port %q: %w", v, err)
		}
		cfg.API.Port = port
	}

	// Schedule
	if v := os.Getenv("RELAYHUB_SCHEDULE_TIMEZONE"); v != "" {
		cfg.Schedule.Timezone = v
	}

	// InfluxDB
	if v := os.Getenv("RELAYHUB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("RELAYHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// firstEnv returns the value of the first non-empty environment variable.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the configuration for errors.
//
// The broker host, port and credentials are required: the hub must not start
// serving sessions without a bus to publish relay commands to.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required (set MQTT_HOST)")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535 (set MQTT_PORT)")
	}
	if c.MQTT.Auth.Username == "" {
		errs = append(errs, "mqtt.auth.username is required (set MQTT_USERNAME)")
	}
	if c.MQTT.Auth.Password == "" {
		errs = append(errs, "mqtt.auth.password is required (set MQTT_PASSWORD)")
	}
	switch strings.ToLower(c.MQTT.Broker.Protocol) {
	case "tcp", "ssl", "ws", "wss":
	default:
		errs = append(errs, "mqtt.broker.protocol must be one of tcp, ssl, ws, wss")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Relay bank
	if c.Relays.Count < 1 || c.Relays.Count > maxRelayCount {
		errs = append(errs, fmt.Sprintf("relays.count must be between 1 and %d", maxRelayCount))
	}

	// Schedule timezone
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("schedule.timezone: %v", err))
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || strings.EqualFold(c.Schedule.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// GetReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
