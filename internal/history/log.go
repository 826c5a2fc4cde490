package history

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Log holds the ordered message sequence of every session.
// Like Registry it is owned by a single goroutine and carries no lock.
type Log struct {
	sessions map[string][]Message
	now      func() time.Time
}

// NewLog creates an empty message log
func NewLog() *Log {
	return &Log{
		sessions: make(map[string][]Message),
		now:      time.Now,
	}
}

// Ensure creates an empty log for the session if none exists yet.
func (l *Log) Ensure(sessionID string) {
	if _, ok := l.sessions[sessionID]; !ok {
		l.sessions[sessionID] = []Message{}
	}
}

// Has reports whether the session has a log
func (l *Log) Has(sessionID string) bool {
	_, ok := l.sessions[sessionID]
	return ok
}

// Replace installs the authoritative history of a session. Every entry becomes
// a confirmed message. Messages that only exist locally (optimistic or failed)
// are kept after the history so pending exchanges can still resolve.
func (l *Log) Replace(sessionID string, entries []Entry) {
	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		created := e.Timestamp
		if created.IsZero() {
			created = l.now()
		}
		msgs = append(msgs, Message{
			ID:        newHandle(),
			Role:      e.Role,
			Content:   e.Content,
			State:     StateConfirmed,
			CreatedAt: created,
		})
	}

	for _, m := range l.sessions[sessionID] {
		if m.State.local() {
			msgs = append(msgs, m)
		}
	}

	l.sessions[sessionID] = msgs
}

// AppendOptimistic appends a user message awaiting backend acknowledgement.
func (l *Log) AppendOptimistic(sessionID, content string) Handle {
	h := newHandle()
	l.sessions[sessionID] = append(l.sessions[sessionID], Message{
		ID:        h,
		Role:      RoleUser,
		Content:   content,
		State:     StateOptimistic,
		CreatedAt: l.now(),
	})
	return h
}

// ConfirmExchange confirms the user message and inserts the assistant reply
// directly after it, as a single update.
func (l *Log) ConfirmExchange(sessionID string, h Handle, reply string) error {
	msgs := l.sessions[sessionID]
	i := indexOf(msgs, h)
	if i < 0 {
		return fmt.Errorf("message %s in session %q: %w", h, sessionID, ErrNotFound)
	}

	msgs[i].State = StateConfirmed
	l.sessions[sessionID] = slices.Insert(msgs, i+1, Message{
		ID:        newHandle(),
		Role:      RoleAssistant,
		Content:   reply,
		State:     StateConfirmed,
		CreatedAt: l.now(),
	})
	return nil
}

// MarkFailed flags the user message as undelivered. It stays in the log.
func (l *Log) MarkFailed(sessionID string, h Handle) error {
	msgs := l.sessions[sessionID]
	i := indexOf(msgs, h)
	if i < 0 {
		return fmt.Errorf("message %s in session %q: %w", h, sessionID, ErrNotFound)
	}
	msgs[i].State = StateFailed
	return nil
}

// Read returns a copy of the session's current messages.
func (l *Log) Read(sessionID string) []Message {
	return slices.Clone(l.sessions[sessionID])
}

// Scope returns a mutation handle bound to one session.
func (l *Log) Scope(sessionID string) Scope {
	return Scope{log: l, sessionID: sessionID}
}

// Scope exposes the log operations of exactly one session
type Scope struct {
	log       *Log
	sessionID string
}

// SessionID returns the session this scope is bound to
func (s Scope) SessionID() string {
	return s.sessionID
}

func (s Scope) Replace(entries []Entry) {
	s.log.Replace(s.sessionID, entries)
}

func (s Scope) AppendOptimistic(content string) Handle {
	return s.log.AppendOptimistic(s.sessionID, content)
}

func (s Scope) ConfirmExchange(h Handle, reply string) error {
	return s.log.ConfirmExchange(s.sessionID, h, reply)
}

func (s Scope) MarkFailed(h Handle) error {
	return s.log.MarkFailed(s.sessionID, h)
}

func (s Scope) Read() []Message {
	return s.log.Read(s.sessionID)
}

func indexOf(msgs []Message, h Handle) int {
	return slices.IndexFunc(msgs, func(m Message) bool { return m.ID == h })
}

func newHandle() Handle {
	return Handle(uuid.NewString())
}
