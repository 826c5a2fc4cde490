package workflow

import (
	"context"
	"fmt"

	"chatsync/internal/history"
)

// HistorySync installs the backend's history of a session each time it is
// activated. Responses are applied only if no newer request for the same
// session was issued in the meantime.
type HistorySync struct {
	gateway     Gateway
	registry    *history.Registry
	log         *history.Log
	generations map[string]uint64
}

// NewHistorySync creates a history synchronizer
func NewHistorySync(gw Gateway, registry *history.Registry, log *history.Log) *HistorySync {
	return &HistorySync{
		gateway:     gw,
		registry:    registry,
		log:         log,
		generations: make(map[string]uint64),
	}
}

// Begin starts a history fetch for the session and returns the gateway call.
func (h *HistorySync) Begin(sessionID string) (Call, error) {
	if _, ok := h.registry.Get(sessionID); !ok {
		return nil, fmt.Errorf("sync session %q: %w", sessionID, history.ErrNotFound)
	}

	h.generations[sessionID]++
	gen := h.generations[sessionID]
	scope := h.log.Scope(sessionID)

	return func(ctx context.Context) Resume {
		entries, err := h.gateway.GetHistory(ctx, sessionID)
		return func() error {
			return h.complete(scope, gen, entries, err)
		}
	}, nil
}

// Generation returns the latest generation issued for the session
func (h *HistorySync) Generation(sessionID string) uint64 {
	return h.generations[sessionID]
}

func (h *HistorySync) complete(scope history.Scope, gen uint64, entries []history.Entry, err error) error {
	if gen != h.generations[scope.SessionID()] {
		return ErrStaleResult
	}
	if err != nil {
		// A failed load of a session the user has left is not worth a notice.
		if active, _ := h.registry.Active(); active != scope.SessionID() {
			return ErrStaleResult
		}
		return &GatewayError{Op: OpGetHistory, SessionID: scope.SessionID(), Err: err}
	}

	// Successful loads apply even when the session is no longer active.
	scope.Replace(entries)
	return nil
}
