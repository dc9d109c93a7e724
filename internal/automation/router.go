package automation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nerrad567/relayhub/internal/relay"
)

// autoCommand is the payload of the auto_control topic.
type autoCommand struct {
	Relay any    `json:"relay"`
	State string `json:"state"`
}

// Subscribe registers the engine's bus handlers: the controller heartbeat,
// one status topic per relay and the shared automation topic.
func (e *Engine) Subscribe(bus Subscriber) error {
	topics := []string{e.topics.ControllerStatus()}
	for id := 1; id <= e.relays.Count(); id++ {
		topics = append(topics, e.topics.RelayStatus(id))
	}
	topics = append(topics, e.topics.AutoControl())

	for _, topic := range topics {
		if err := bus.Subscribe(topic, e.qos, e.HandleBusMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	e.logger.Info("subscribed to relay bus", "topics", len(topics))
	return nil
}

// HandleBusMessage routes one inbound bus message by topic.
//
//   - home/devices/status: controller heartbeat, stored and broadcast.
//   - home/devices/relay{N}/status: controller confirmation, written to the
//     registry directly and broadcast. Nothing is published back.
//   - home/devices/auto_control: {"relay":N,"state":"ON"|"OFF"}, applied only
//     when relay N is in auto mode.
//
// Other topics are ignored. Invalid input returns a validation error and
// changes nothing.
func (e *Engine) HandleBusMessage(topic string, payload []byte) error {
	switch {
	case topic == e.topics.ControllerStatus():
		e.handleHeartbeat(payload)
		return nil
	case topic == e.topics.AutoControl():
		return e.handleAutoControl(payload)
	}

	if id, ok := e.topics.ParseRelayStatus(topic); ok {
		return e.handleRelayStatus(id, payload)
	}

	e.logger.Debug("ignoring bus message", "topic", topic)
	return nil
}

func (e *Engine) handleHeartbeat(payload []byte) {
	status := strings.TrimSpace(string(payload))

	e.mu.Lock()
	defer e.mu.Unlock()

	if status != e.controllerStatus {
		e.logger.Info("controller status changed", "from", e.controllerStatus, "to", status)
		if e.recorder != nil {
			e.recorder.WriteControllerStatus(status)
		}
	}
	e.controllerStatus = status
	e.broadcast(EventESPStatus, status)
}

func (e *Engine) handleRelayStatus(id int, payload []byte) error {
	state, err := relay.ParseState(string(payload))
	if err != nil {
		return fmt.Errorf("relay %d status: %w", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.relays.SetState(id, state); err != nil {
		return fmt.Errorf("relay status: %w", err)
	}
	e.broadcast(EventRelayStatus, RelayStatus{Relay: id, Status: state})
	e.record(id, state, SourceController)
	e.logger.Debug("relay confirmed", "relay", id, "state", string(state))
	return nil
}

func (e *Engine) handleAutoControl(payload []byte) error {
	id, state, err := decodeAutoCommand(payload)
	if err != nil {
		return fmt.Errorf("auto_control: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validate("auto_control", id); err != nil {
		return err
	}
	if e.relays.IsManual(id) {
		e.logger.Info("auto command ignored (manual mode)", "relay", id, "state", string(state))
		return nil
	}
	return e.apply(id, state, SourceAuto)
}

// decodeAutoCommand parses an auto_control payload. Unknown fields, missing
// fields, trailing data and non-integer relay ids are all rejected.
func decodeAutoCommand(payload []byte) (int, relay.State, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var cmd autoCommand
	if err := dec.Decode(&cmd); err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return 0, "", fmt.Errorf("%w: trailing data", ErrInvalidPayload)
	}
	if cmd.Relay == nil {
		return 0, "", fmt.Errorf("%w: missing relay", ErrInvalidPayload)
	}

	id, err := relay.ParseID(cmd.Relay)
	if err != nil {
		return 0, "", err
	}
	state, err := relay.ParseState(cmd.State)
	if err != nil {
		return 0, "", err
	}
	return id, state, nil
}
