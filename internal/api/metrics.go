package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/relayhub/internal/relay"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Relays        RelayMetrics   `json:"relays"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Status        string `json:"status"`
	Connected     bool   `json:"connected"`
	Subscriptions int    `json:"subscriptions"`
	Controller    string `json:"controller"`
}

// RelayMetrics summarises the relay bank and its schedules.
type RelayMetrics struct {
	Total       int `json:"total"`
	On          int `json:"on"`
	Auto        int `json:"auto"`
	Rules       int `json:"rules"`
	ArmedTimers int `json:"armed_timers"`
}

// handleMetrics returns runtime, session, bus and relay statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := s.engine.Snapshot()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		MQTT: MQTTMetrics{
			Status:     snap.BusStatus,
			Controller: snap.ControllerStatus,
		},
		Relays: RelayMetrics{
			Total:       len(snap.Relays),
			ArmedTimers: len(snap.Armed),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT.Connected = s.mqtt.IsConnected()
		metrics.MQTT.Subscriptions = s.mqtt.SubscriptionCount()
	}

	for _, view := range snap.Relays {
		if view.State == relay.StateOn {
			metrics.Relays.On++
		}
		if view.Mode == relay.ModeAuto {
			metrics.Relays.Auto++
		}
	}
	for _, rules := range snap.Schedules {
		metrics.Relays.Rules += len(rules)
	}

	writeJSON(w, http.StatusOK, metrics)
}
