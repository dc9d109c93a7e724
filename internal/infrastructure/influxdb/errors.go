package influxdb

import "errors"

var (
	// ErrDisabled is returned by Open when telemetry is switched off.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrUnreachable means the server did not answer a ping or reported
	// itself unhealthy.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned by HealthCheck after Close.
	ErrClosed = errors.New("influxdb: recorder closed")
)
