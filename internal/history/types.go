package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a session id or message handle is unknown.
var ErrNotFound = errors.New("not found")

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// State is the confirmation state of a message
type State int

const (
	// StateOptimistic marks a message appended locally and awaiting the backend
	StateOptimistic State = iota
	// StateConfirmed marks a backend-acknowledged or backend-sourced message
	StateConfirmed
	// StateFailed marks a message the backend never accepted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOptimistic:
		return "optimistic"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// local reports whether the message exists only on this client.
func (s State) local() bool {
	return s == StateOptimistic || s == StateFailed
}

// Handle identifies one message independently of its content
type Handle string

// Session represents a single conversation thread
type Session struct {
	ID        string
	CreatedAt time.Time
}

// Label is the short display name of the session.
func (s Session) Label() string {
	id := s.ID
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "Session " + id
}

// Message represents a single message in a session log
type Message struct {
	ID        Handle
	Role      Role
	Content   string
	State     State
	CreatedAt time.Time
}

// Entry is one message of the authoritative history held by the backend
type Entry struct {
	Role      Role
	Content   string
	Timestamp time.Time
}
