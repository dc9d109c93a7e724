// Package logging provides structured logging for Relay Hub.
//
// It wraps Go's standard log/slog package so every component logs the same
// way: JSON in production, text for development, with service and version
// fields on every entry.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("relay applied", "relay", 3, "state", "ON")
//
// Never log broker passwords.
package logging
