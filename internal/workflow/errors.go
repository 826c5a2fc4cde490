package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned when a send is attempted before any
	// session was selected.
	ErrNoActiveSession = errors.New("no active session")

	// ErrStaleResult marks a history response superseded by a newer request.
	// It is never shown to the user.
	ErrStaleResult = errors.New("stale result")
)

// Op names the gateway operation that failed
type Op string

const (
	OpListSessions Op = "list sessions"
	OpGetHistory   Op = "load history"
	OpSendMessage  Op = "send message"
)

// GatewayError wraps any network, status or payload failure of the backend.
// It is always recoverable.
type GatewayError struct {
	Op        Op
	SessionID string
	Err       error
}

func (e *GatewayError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s for session %s: %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGatewayFailure reports whether err carries a *GatewayError
func IsGatewayFailure(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
