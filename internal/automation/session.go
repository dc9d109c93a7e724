package automation

import (
	"github.com/nerrad567/relayhub/internal/relay"
	"github.com/nerrad567/relayhub/internal/schedule"
)

// Connect sends a full state snapshot to a newly connected session: bus
// status, controller status, every relay's state, all schedules and every
// relay's mode. It changes nothing.
//
// The snapshot is queued under the engine lock, so a broadcast that follows
// it can never carry older state.
func (e *Engine) Connect(s Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s.Send(EventMQTTStatus, e.busStatus)
	s.Send(EventESPStatus, e.controllerStatus)
	states := e.relays.States()
	for id := 1; id <= e.relays.Count(); id++ {
		s.Send(EventRelayStatus, RelayStatus{Relay: id, Status: states[id]})
	}
	s.Send(EventSchedulesUpdated, e.store.ListAll())
	s.Send(EventRelayModesUpdated, e.relays.Modes())
}

// Toggle inverts a relay's state. It is honoured only in manual mode; in
// auto mode it is logged and dropped without error.
func (e *Engine) Toggle(relayID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, mode, err := e.relays.Get(relayID)
	if err != nil {
		return err
	}
	if mode != relay.ModeManual {
		e.logger.Info("toggle ignored (auto mode)", "relay", relayID)
		return nil
	}
	return e.apply(relayID, state.Invert(), SourceManual)
}

// SetMode switches a relay between manual and auto. Timers are rebuilt, so a
// relay going to auto pauses its rules and one returning to manual re-arms
// them.
func (e *Engine) SetMode(relayID int, mode relay.Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.relays.SetMode(relayID, mode); err != nil {
		return err
	}
	e.rebuild()
	e.broadcast(EventRelayModeUpdated, RelayModeChange{Relay: relayID, Mode: mode})
	e.logger.Info("relay mode set", "relay", relayID, "mode", string(mode), "armed", e.sched.Len())
	return nil
}

// AddSchedule validates and appends a rule to a relay and returns its index.
// The rule is armed straight away if the relay is manual.
func (e *Engine) AddSchedule(relayID int, rule schedule.Rule) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validate("add schedule", relayID); err != nil {
		return 0, err
	}
	rule, err := rule.Normalize()
	if err != nil {
		return 0, err
	}

	index := e.store.Add(relayID, rule)
	if e.relays.IsManual(relayID) {
		e.rebuild()
	}
	e.broadcast(EventSchedulesUpdated, e.store.ListAll())
	e.logger.Info("schedule added", "relay", relayID, "key", rule.Key(relayID), "index", index)
	return index, nil
}

// DeleteSchedule removes the rule at index from a relay and stops its timer.
func (e *Engine) DeleteSchedule(relayID, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validate("delete schedule", relayID); err != nil {
		return err
	}
	removed, err := e.store.RemoveAt(relayID, index)
	if err != nil {
		return err
	}

	disarmed := e.sched.Disarm(relayID, removed)
	e.rebuild()
	e.broadcast(EventSchedulesUpdated, e.store.ListAll())
	e.logger.Info("schedule deleted",
		"relay", relayID,
		"key", removed.Key(relayID),
		"index", index,
		"timer_stopped", disarmed,
	)
	return nil
}
