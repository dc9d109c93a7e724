package automation

import (
	"errors"

	"github.com/nerrad567/relayhub/internal/relay"
	"github.com/nerrad567/relayhub/internal/schedule"
)

// Domain errors for the automation package.
//
//	if errors.Is(err, automation.ErrInvalidPayload) {
//	    // drop the bus message
//	}
var (
	// ErrInvalidPayload is returned when a bus or session payload does not
	// have the expected shape.
	ErrInvalidPayload = errors.New("automation: invalid payload")
)

// IsValidationError reports whether err was caused by rejected input rather
// than a transport or internal failure. Validation errors leave all state
// unchanged and are reported only to the caller that sent the input.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		ErrInvalidPayload,
		relay.ErrInvalidRelay,
		relay.ErrInvalidState,
		relay.ErrInvalidMode,
		schedule.ErrInvalidRule,
		schedule.ErrRuleNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
