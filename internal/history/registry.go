package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Registry holds the known sessions in discovery order and the active one.
// It is not safe for concurrent use; the orchestrator loop owns it.
type Registry struct {
	order    []string
	sessions map[string]Session
	active   string
	now      func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for local session ids.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// CreateLocal fabricates a new session id and inserts it without activating it.
func (r *Registry) CreateLocal() string {
	now := r.now()
	id := fmt.Sprintf("session-%d", now.UnixMilli())
	for r.has(id) {
		id = fmt.Sprintf("session-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
	}

	r.insert(Session{ID: id, CreatedAt: now})
	return id
}

// LoadRemote merges a backend session listing into the registry.
// Known ids keep their existing entry. When the registry was empty the first
// listed session becomes active.
func (r *Registry) LoadRemote(list []Session) {
	wasEmpty := len(r.order) == 0

	for _, s := range list {
		if s.ID == "" || r.has(s.ID) {
			continue
		}
		r.insert(s)
	}

	if wasEmpty && len(r.order) > 0 && r.active == "" {
		r.active = r.order[0]
	}
}

// SetActive switches the active session. It performs no I/O.
func (r *Registry) SetActive(id string) error {
	if !r.has(id) {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	r.active = id
	return nil
}

// Active returns the active session id
func (r *Registry) Active() (string, bool) {
	return r.active, r.active != ""
}

// Get returns the session with the given id
func (r *Registry) Get(id string) (Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Sessions returns all sessions in discovery order
func (r *Registry) Sessions() []Session {
	out := make([]Session, len(r.order))
	for i, id := range r.order {
		out[i] = r.sessions[id]
	}
	return out
}

// Len returns the number of known sessions
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) has(id string) bool {
	_, ok := r.sessions[id]
	return ok
}

func (r *Registry) insert(s Session) {
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
}
