package client

import (
	"errors"
	"fmt"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("tracker did not respond")

// TimeoutError reports a request that exhausted its retries.
type TimeoutError struct {
	Op       string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: tracker did not respond after %d attempts", e.Op, e.Attempts)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// ProtocolError reports a response the client cannot make progress with.
type ProtocolError struct {
	State  wire.State
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected %s response: %s", e.State, e.Reason)
}
