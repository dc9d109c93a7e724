// Package api implements the HTTP and WebSocket front end of Relay Hub.
//
// This package provides:
//   - The WebSocket endpoint live sessions use to watch and drive relays
//   - A hub that fans engine events out to every session
//   - Read-only REST endpoints for health, metrics, relays and schedules
//   - The embedded dashboard at /
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Sessions
//
// On connect a session receives the full snapshot as a burst of events
// (mqttStatus, espStatus, relayStatus per relay, schedulesUpdated,
// relayModesUpdated). It then sends commands as
//
//	{"type": "toggleRelay", "id": "7", "payload": 3}
//	{"type": "setRelayMode", "id": "8", "payload": {"relay": 3, "mode": "auto"}}
//	{"type": "addSchedule", "id": "9", "payload": {"relay": 3,
//	    "schedule": {"time": "07:30", "days": [1,2,3,4,5], "action": "ON"}}}
//	{"type": "deleteSchedule", "id": "10", "payload": {"relay": 3, "index": 0}}
//
// Each command is answered with a "response" or an "error" message carrying
// the same id, sent to that session only. Resulting state changes reach every
// session as "event" messages.
//
// # Graceful Degradation
//
// The server runs without a broker connection: sessions still connect and
// see the last known state, and commands update local state while publishes
// are dropped with a warning.
package api
