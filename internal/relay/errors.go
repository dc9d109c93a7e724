package relay

import "errors"

// Domain errors for the relay package.
//
//	if errors.Is(err, relay.ErrInvalidRelay) {
//	    // reject the command
//	}
var (
	// ErrInvalidRelay is returned when a relay id is outside 1..Count.
	ErrInvalidRelay = errors.New("relay: invalid relay id")

	// ErrInvalidState is returned when a state is not ON or OFF.
	ErrInvalidState = errors.New("relay: invalid state")

	// ErrInvalidMode is returned when a mode is not manual or auto.
	ErrInvalidMode = errors.New("relay: invalid mode")
)
