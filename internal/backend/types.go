package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chatsync/internal/history"
)

// chatRequest is the body of POST /chat/chat
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// chatResponse is the reply of POST /chat/chat
type chatResponse struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}

// historyEntry is one element of GET /chat/history/{id}
type historyEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp timestamp `json:"timestamp"`
}

// sessionRef is one element of a session listing. The backend returns either
// bare ids or objects carrying the creation time.
type sessionRef struct {
	ID        string
	CreatedAt time.Time
}

func (s *sessionRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		s.ID = id
		return nil
	}

	var obj struct {
		SessionID string    `json:"session_id"`
		ID        string    `json:"id"`
		CreatedAt timestamp `json:"created_at"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("session entry is neither an id nor an object: %w", err)
	}
	s.ID = obj.SessionID
	if s.ID == "" {
		s.ID = obj.ID
	}
	s.CreatedAt = time.Time(obj.CreatedAt)
	return nil
}

// loginRequest is the body of POST /chat/login
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"user_id"`
}

// Summary is a backend-generated digest of one session
type Summary struct {
	FullSummary  string   `json:"full_summary"`
	BulletPoints []string `json:"bullet_points"`
	OneLiner     string   `json:"one_liner"`
}

// timestamp accepts ISO 8601 values with or without a zone. Zone-less values
// are taken as UTC.
type timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Null or a non-string value: leave the zero time.
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func toEntries(raw []historyEntry) []history.Entry {
	entries := make([]history.Entry, 0, len(raw))
	for _, e := range raw {
		role := history.Role(strings.ToLower(e.Role))
		if role != history.RoleUser && role != history.RoleAssistant {
			continue
		}
		entries = append(entries, history.Entry{
			Role:      role,
			Content:   e.Content,
			Timestamp: time.Time(e.Timestamp),
		})
	}
	return entries
}

func toSessions(refs []sessionRef) []history.Session {
	sessions := make([]history.Session, 0, len(refs))
	for _, r := range refs {
		if r.ID == "" {
			continue
		}
		sessions = append(sessions, history.Session{ID: r.ID, CreatedAt: r.CreatedAt})
	}
	return sessions
}
