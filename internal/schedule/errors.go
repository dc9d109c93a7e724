package schedule

import "errors"

// Domain errors for the schedule package.
var (
	// ErrInvalidRule is the parent of every rule validation error.
	ErrInvalidRule = errors.New("schedule: invalid rule")

	// ErrInvalidTime is returned when a rule time is not HH:MM.
	ErrInvalidTime = errors.New("schedule: invalid time")

	// ErrNoDays is returned when a rule has an empty weekday set.
	ErrNoDays = errors.New("schedule: no days selected")

	// ErrInvalidDay is returned when a weekday is outside 0-6.
	ErrInvalidDay = errors.New("schedule: invalid day")

	// ErrInvalidAction is returned when a rule action is not ON or OFF.
	ErrInvalidAction = errors.New("schedule: invalid action")

	// ErrRuleNotFound is returned when deleting by an index that does not exist.
	ErrRuleNotFound = errors.New("schedule: rule not found")
)
