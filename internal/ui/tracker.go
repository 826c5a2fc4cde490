package ui

import (
	"chatsync/internal/history"
	"chatsync/internal/orchestrator"
)

type eventKind int

const (
	eventSwitched eventKind = iota
	eventLoading
	eventLoaded
	eventMessage
	eventFailed
)

type event struct {
	kind eventKind
	msg  history.Message
}

// tracker diffs successive views of the active session so that only what
// changed is printed. Messages are identified by handle.
type tracker struct {
	active  string
	loading bool
	seen    map[history.Handle]history.State
}

func (t *tracker) update(v orchestrator.View) []event {
	var events []event

	if t.seen == nil || v.ActiveID != t.active {
		t.active = v.ActiveID
		t.loading = false
		t.seen = make(map[history.Handle]history.State)
		if v.ActiveID == "" {
			return nil
		}
		events = append(events, event{kind: eventSwitched})
		if !v.Loading {
			t.markAll(v.Messages)
			if len(v.Messages) > 0 {
				events = append(events, event{kind: eventLoaded})
			}
			return events
		}
	}

	// A reload replaces every handle, so the session is redrawn once the
	// history has arrived.
	if v.Loading {
		if !t.loading {
			events = append(events, event{kind: eventLoading})
		}
		t.loading = true
		t.markAll(v.Messages)
		return events
	}
	if t.loading {
		t.loading = false
		t.markAll(v.Messages)
		if len(v.Messages) > 0 {
			events = append(events, event{kind: eventLoaded})
		}
		return events
	}

	for _, m := range v.Messages {
		prev, ok := t.seen[m.ID]
		t.seen[m.ID] = m.State
		switch {
		case !ok && m.State == history.StateOptimistic:
			// The user's own input is already on screen.
		case !ok && m.State == history.StateFailed:
			events = append(events, event{kind: eventFailed, msg: m})
		case !ok:
			events = append(events, event{kind: eventMessage, msg: m})
		case prev != m.State && m.State == history.StateFailed:
			events = append(events, event{kind: eventFailed, msg: m})
		}
	}
	return events
}

func (t *tracker) markAll(msgs []history.Message) {
	for _, m := range msgs {
		t.seen[m.ID] = m.State
	}
}
