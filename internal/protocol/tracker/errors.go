package tracker

import (
	"errors"
	"fmt"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// ErrIllegalTransition matches requests whose type is not accepted in the
// sender's current session state.
var ErrIllegalTransition = errors.New("illegal transition")

// IllegalTransitionError reports a rejected (state, message type) pair.
//
// State is wire.StateNone when the sender has no session and the message type
// cannot create one.
type IllegalTransitionError struct {
	Type    wire.MessageType
	State   wire.State
	Session string
}

func (e *IllegalTransitionError) Error() string {
	if e.Session == "" {
		return fmt.Sprintf("illegal transition: %s in state %s", e.Type, e.State)
	}
	return fmt.Sprintf("illegal transition: %s in state %s (session %s)", e.Type, e.State, e.Session)
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }
