package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes. Topic names are case-sensitive and fixed by the relay
// controller firmware.
const (
	// TopicPrefixDevices is the base for controller topics.
	TopicPrefixDevices = "home/devices"

	// TopicPrefixDashboard is the base for topics owned by the hub itself.
	TopicPrefixDashboard = "home/dashboard"
)

// Topics provides builders for the relay bus topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.RelayCommand(3)  // "home/devices/relay3"
//	topics.RelayStatus(3)   // "home/devices/relay3/status"
type Topics struct{}

// ControllerStatus returns the controller heartbeat topic.
//
// Example: home/devices/status
func (Topics) ControllerStatus() string {
	return TopicPrefixDevices + "/status"
}

// RelayStatus returns the topic on which the controller confirms a relay's state.
//
// Example: home/devices/relay3/status
func (Topics) RelayStatus(relay int) string {
	return fmt.Sprintf("%s/relay%d/status", TopicPrefixDevices, relay)
}

// RelayCommand returns the topic the hub publishes a relay's target state to.
//
// Example: home/devices/relay3
func (Topics) RelayCommand(relay int) string {
	return fmt.Sprintf("%s/relay%d", TopicPrefixDevices, relay)
}

// AutoControl returns the shared automation command topic.
//
// Example: home/devices/auto_control
func (Topics) AutoControl() string {
	return TopicPrefixDevices + "/auto_control"
}

// HubStatus returns the hub's own online/offline topic (LWT target).
//
// Example: home/dashboard/status
func (Topics) HubStatus() string {
	return TopicPrefixDashboard + "/status"
}

// ParseRelayStatus extracts the relay number from a relay status topic.
// It returns false for any topic that is not of the form
// home/devices/relay{N}/status with N a decimal number.
func (Topics) ParseRelayStatus(topic string) (int, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixDevices+"/relay")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, "/status")
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
