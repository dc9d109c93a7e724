// Relay Hub - relay state and schedule coordination
//
// This is the main entry point for the Relay Hub service. It bridges a bank
// of relays on an MQTT bus to browser sessions:
//   - Live relay state over WebSocket, pushed to every session
//   - Manual and auto (external automation) control per relay
//   - Weekly ON/OFF schedules evaluated in the configured timezone
//   - Optional relay telemetry in InfluxDB
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/relayhub/internal/api"
	"github.com/nerrad567/relayhub/internal/automation"
	"github.com/nerrad567/relayhub/internal/infrastructure/config"
	"github.com/nerrad567/relayhub/internal/infrastructure/influxdb"
	"github.com/nerrad567/relayhub/internal/infrastructure/logging"
	"github.com/nerrad567/relayhub/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable that overrides the config path.
const configEnv = "RELAYHUB_CONFIG"

// schedulerStopTimeout bounds how long shutdown waits for a running
// schedule firing to finish.
const schedulerStopTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Relay Hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration. The default path may be absent (container
	// deployments configure everything through the environment); an
	// explicitly named file must exist.
	configPath, explicit := getConfigPath()
	cfg, err := config.Load(configPath, !explicit)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolving schedule timezone: %w", err)
	}

	// Connect to MQTT broker. An unreachable broker is not fatal: the client
	// keeps retrying and the engine is told when it gets through.
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	switch {
	case err == nil:
		log.Info("MQTT connected",
			"broker", mqtt.BrokerURL(cfg.MQTT.Broker),
			"client_id", mqttClient.ClientID(),
		)
	case mqtt.IsPending(err):
		log.Warn("MQTT broker not reachable yet, retrying in background",
			"broker", mqtt.BrokerURL(cfg.MQTT.Broker),
			"error", err,
		)
	default:
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)

	// The hub is created first: the engine broadcasts through it and the API
	// server accepts sessions on it.
	hub := api.NewHub(cfg.WebSocket, log)
	engine := automation.NewEngine(automation.Config{
		Relays:   cfg.Relays.Count,
		Location: loc,
		QoS:      byte(cfg.MQTT.QoS), // #nosec G115 -- validated to 0..2
	}, mqttClient, hub, log)

	// Relay telemetry (optional)
	recorder, err := openRecorder(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer func() {
			log.Info("closing InfluxDB recorder")
			if closeErr := recorder.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		engine.SetRecorder(recorder)
	}

	// Bus connection changes drive the engine's connection status.
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		engine.SetBusConnected(true, nil)
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
		engine.SetBusConnected(false, err)
	})
	// The initial connect may have completed before the callbacks were set.
	if mqttClient.IsConnected() {
		engine.SetBusConnected(true, nil)
	}

	if err := engine.Subscribe(mqttClient); err != nil {
		return fmt.Errorf("subscribing to relay topics: %w", err)
	}
	engine.Start()
	defer func() {
		log.Info("stopping schedule timers")
		select {
		case <-engine.Stop().Done():
		case <-time.After(schedulerStopTimeout):
			log.Warn("schedule firing still running at shutdown")
		}
	}()

	// Start HTTP / WebSocket server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Panel:   cfg.Panel,
		Logger:  log,
		Engine:  engine,
		Hub:     hub,
		MQTT:    mqttClient,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, mqttClient, recorder); err != nil {
		log.Warn("startup health check failed, continuing degraded", "error", err)
	} else {
		log.Info("all health checks passed")
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"relays", engine.RelayCount(),
		"timezone", loc.String(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (sessions closed)
	// 2. Schedule timers
	// 3. InfluxDB (pending points flushed)
	// 4. MQTT

	log.Info("Relay Hub stopped")
	return nil
}

// getConfigPath returns the configuration file path and whether it was set
// explicitly through RELAYHUB_CONFIG.
func getConfigPath() (string, bool) {
	if path := os.Getenv(configEnv); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// openRecorder opens the InfluxDB relay recorder. It returns nil, nil when
// telemetry is disabled.
func openRecorder(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Recorder, error) {
	recorder, err := influxdb.Open(cfg, log)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB telemetry disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening InfluxDB recorder: %w", err)
	}

	log.Info("InfluxDB recorder ready",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return recorder, nil
}

// healthChecker is implemented by every infrastructure client.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - recorder: InfluxDB recorder to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient healthChecker, recorder *influxdb.Recorder) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if recorder != nil {
		if err := recorder.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
