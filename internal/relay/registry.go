package relay

import "fmt"

// DefaultCount is the size of the relay bank on the standard controller.
const DefaultCount = 8

type entry struct {
	state State
	mode  Mode
}

// Registry stores the current state and mode of every relay.
// Last write wins; no history is kept.
type Registry struct {
	relays []entry // index 0 is relay 1
}

// NewRegistry creates a registry of count relays, all OFF and manual.
// A count below 1 falls back to DefaultCount.
func NewRegistry(count int) *Registry {
	if count < 1 {
		count = DefaultCount
	}
	r := &Registry{relays: make([]entry, count)}
	for i := range r.relays {
		r.relays[i] = entry{state: StateOff, mode: ModeManual}
	}
	return r
}

// Count returns the number of relays.
func (r *Registry) Count() int {
	return len(r.relays)
}

// Validate returns ErrInvalidRelay unless id is in 1..Count.
func (r *Registry) Validate(id int) error {
	if id < 1 || id > len(r.relays) {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidRelay, id, len(r.relays))
	}
	return nil
}

// Get returns the state and mode of a relay. For an invalid id it returns
// StateUnknown and ErrInvalidRelay.
func (r *Registry) Get(id int) (State, Mode, error) {
	if err := r.Validate(id); err != nil {
		return StateUnknown, "", err
	}
	e := r.relays[id-1]
	return e.state, e.mode, nil
}

// State returns the state of a relay, or StateUnknown for an invalid id.
func (r *Registry) State(id int) State {
	s, _, _ := r.Get(id)
	return s
}

// Mode returns the mode of a relay, or "" for an invalid id.
func (r *Registry) Mode(id int) Mode {
	_, m, _ := r.Get(id)
	return m
}

// IsManual reports whether a valid relay is in manual mode.
func (r *Registry) IsManual(id int) bool {
	return r.Mode(id) == ModeManual
}

// SetState records a relay's state.
func (r *Registry) SetState(id int, s State) error {
	if err := r.Validate(id); err != nil {
		return err
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	r.relays[id-1].state = s
	return nil
}

// SetMode records a relay's mode.
func (r *Registry) SetMode(id int, m Mode) error {
	if err := r.Validate(id); err != nil {
		return err
	}
	if !m.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	r.relays[id-1].mode = m
	return nil
}

// States returns a copy of every relay's state keyed by id.
func (r *Registry) States() map[int]State {
	out := make(map[int]State, len(r.relays))
	for i, e := range r.relays {
		out[i+1] = e.state
	}
	return out
}

// Modes returns a copy of every relay's mode keyed by id.
func (r *Registry) Modes() map[int]Mode {
	out := make(map[int]Mode, len(r.relays))
	for i, e := range r.relays {
		out[i+1] = e.mode
	}
	return out
}
