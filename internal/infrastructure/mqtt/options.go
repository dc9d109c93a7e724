package mqtt

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/relayhub/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12

	// clientIDSuffixLen is the number of random hex characters in generated client IDs.
	clientIDSuffixLen = 8
)

// BrokerURL builds the broker URL from the configured protocol, host and port.
// Websocket schemes carry the configured path; tcp and ssl ignore it.
//
// Example: wss://broker.example.com:8884/mqtt
func BrokerURL(b config.MQTTBrokerConfig) string {
	scheme := strings.ToLower(b.Protocol)
	if scheme == "" {
		scheme = "tcp"
	}
	url := fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
	if (scheme == "ws" || scheme == "wss") && b.Path != "" {
		if !strings.HasPrefix(b.Path, "/") {
			url += "/"
		}
		url += b.Path
	}
	return url
}

// resolveClientID returns the configured client ID or generates one from the
// prefix so that several dashboards can share a broker.
func resolveClientID(b config.MQTTBrokerConfig) string {
	if b.ClientID != "" {
		return b.ClientID
	}
	prefix := b.ClientIDPrefix
	if prefix == "" {
		prefix = "relayhub"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
	return prefix + "_" + suffix
}

// isSecure reports whether the scheme needs a TLS configuration.
func isSecure(protocol string) bool {
	switch strings.ToLower(protocol) {
	case "ssl", "tls", "wss", "mqtts":
		return true
	}
	return false
}

// buildClientOptions creates paho MQTT options from Relay Hub config.
//
// This configures:
//   - Broker URL (tcp, ssl, ws or wss)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with exponential backoff
//   - TLS configuration for secure schemes
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(BrokerURL(cfg.Broker))
	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if isSecure(cfg.Broker.Protocol) {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The LWT message is published by the broker if the hub disconnects
// unexpectedly, so the controller and other dashboards can tell.
//
// Topic: home/dashboard/status
// QoS: 1
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	willPayload := fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"unexpected_disconnect","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)

	opts.SetWill(Topics{}.HubStatus(), willPayload, 1, true)
}

// buildOnlinePayload creates the JSON payload for online status messages.
func buildOnlinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"online","client_id":"%s","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// buildOfflinePayload creates the JSON payload for graceful offline status.
func buildOfflinePayload(clientID string) string {
	return fmt.Sprintf(
		`{"status":"offline","client_id":"%s","reason":"graceful_shutdown","timestamp":"%s"}`,
		clientID,
		time.Now().UTC().Format(time.RFC3339),
	)
}
