package relay

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// State is the switched state of a relay.
type State string

// Relay states.
const (
	StateOn  State = "ON"
	StateOff State = "OFF"

	// StateUnknown is what lookups of an invalid relay report. It is never
	// stored in the registry.
	StateUnknown State = "UNKNOWN"
)

// Valid reports whether s is ON or OFF.
func (s State) Valid() bool {
	return s == StateOn || s == StateOff
}

// Invert returns the opposite state. StateUnknown inverts to StateOn.
func (s State) Invert() State {
	if s == StateOn {
		return StateOff
	}
	return StateOn
}

// Mode selects which actor may drive a relay.
//
// In manual mode sessions and schedules control the relay; in auto mode only
// the controller's automation commands do.
type Mode string

// Relay modes.
const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// Valid reports whether m is manual or auto.
func (m Mode) Valid() bool {
	return m == ModeManual || m == ModeAuto
}

// ParseState parses "ON"/"OFF" case-insensitively, ignoring surrounding space.
func ParseState(s string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return StateOn, nil
	case "OFF":
		return StateOff, nil
	}
	return StateUnknown, fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// ParseMode parses "manual"/"auto" case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return ModeManual, nil
	case "auto":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ParseID converts a decoded JSON value into a relay id. Sessions and the
// controller send either a number or a numeric string. Fractions, booleans and
// anything non-numeric are rejected. The range is not checked here.
func ParseID(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidRelay, x)
		}
		return int(x), nil
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRelay, x.String())
		}
		return n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRelay, x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidRelay, v)
}
