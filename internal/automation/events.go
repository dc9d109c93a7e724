package automation

import (
	"github.com/nerrad567/relayhub/internal/relay"
	"github.com/nerrad567/relayhub/internal/schedule"
)

// Session event names.
const (
	EventMQTTStatus        = "mqttStatus"
	EventESPStatus         = "espStatus"
	EventRelayStatus       = "relayStatus"
	EventSchedulesUpdated  = "schedulesUpdated"
	EventRelayModesUpdated = "relayModesUpdated"
	EventRelayModeUpdated  = "relayModeUpdated"
	EventMQTTError         = "mqttError"
)

// Bus connection states reported in EventMQTTStatus.
const (
	BusConnected    = "CONNECTED"
	BusDisconnected = "DISCONNECTED"
)

// ControllerUnknown is the controller status before the first heartbeat.
const ControllerUnknown = "UNKNOWN"

// Source says which actor caused a state change.
type Source string

// Sources of relay state changes.
const (
	SourceManual     Source = "manual"
	SourceSchedule   Source = "schedule"
	SourceAuto       Source = "auto"
	SourceController Source = "controller"
)

// RelayStatus is the payload of EventRelayStatus.
type RelayStatus struct {
	Relay  int         `json:"relay"`
	Status relay.State `json:"status"`
}

// RelayModeChange is the payload of EventRelayModeUpdated.
type RelayModeChange struct {
	Relay int        `json:"relay"`
	Mode  relay.Mode `json:"mode"`
}

// ErrorMessage is the payload of EventMQTTError.
type ErrorMessage struct {
	Message string `json:"message"`
}

// RelayView is one relay in a Snapshot.
type RelayView struct {
	ID    int         `json:"id"`
	State relay.State `json:"state"`
	Mode  relay.Mode  `json:"mode"`
}

// Snapshot is a consistent copy of everything the engine knows.
type Snapshot struct {
	BusStatus        string                  `json:"mqtt_status"`
	ControllerStatus string                  `json:"controller_status"`
	Relays           []RelayView             `json:"relays"`
	Schedules        map[int][]schedule.Rule `json:"schedules"`
	Armed            []schedule.ArmedRule    `json:"armed"`
}
