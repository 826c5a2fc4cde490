package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"chatsync/internal/history"
	"chatsync/internal/workflow"
)

// SessionView is a session as listed to the presentation layer
type SessionView struct {
	history.Session
	Active bool
}

// View is the visible state at one instant
type View struct {
	Sessions []SessionView
	ActiveID string
	Messages []history.Message
	// Pending is the number of unresolved sends in the active session.
	Pending int
	// Loading is set while the active session's history is being fetched.
	Loading bool
}

// Bootstrap discovers the initial session according to the configured
// discovery mode. Results arrive asynchronously through Changes.
func (o *Orchestrator) Bootstrap(ctx context.Context) error {
	return o.do(ctx, func() {
		fallback := true
		if o.opts.Discovery == DiscoverLocal {
			o.createAndActivate()
			fallback = false
		}
		o.listSessions(fallback)
	})
}

// SelectSession makes the session active and reloads its history.
func (o *Orchestrator) SelectSession(ctx context.Context, sessionID string) error {
	var err error
	if doErr := o.do(ctx, func() { err = o.activate(sessionID) }); doErr != nil {
		return doErr
	}
	return err
}

// NewSession fabricates a local session and selects it.
func (o *Orchestrator) NewSession(ctx context.Context) (string, error) {
	var id string
	if err := o.do(ctx, func() { id = o.createAndActivate() }); err != nil {
		return "", err
	}
	return id, nil
}

// RefreshSessions merges the backend's current session listing.
func (o *Orchestrator) RefreshSessions(ctx context.Context) error {
	return o.do(ctx, func() { o.listSessions(false) })
}

// Send submits a message to the active session. Blank text is ignored.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	var err error
	doErr := o.do(ctx, func() {
		ex, call, beginErr := o.sender.Begin(text)
		if beginErr != nil || call == nil {
			err = beginErr
			return
		}

		// Track the send until its reply resolves
		o.pending[ex.SessionID]++
		o.logger.Debug("Send issued", zap.String("session", ex.SessionID), zap.String("handle", string(ex.Handle)))
		o.changed()

		o.spawn(call, func(resErr error) {
			o.pending[ex.SessionID]--
			o.logger.Debug("Send resolved",
				zap.String("session", ex.SessionID),
				zap.String("handle", string(ex.Handle)),
				zap.Stringer("state", ex.State))
			o.settle(resErr)
		})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// View returns a snapshot of the visible state.
func (o *Orchestrator) View(ctx context.Context) (View, error) {
	var v View
	err := o.do(ctx, func() { v = o.snapshot() })
	return v, err
}

func (o *Orchestrator) snapshot() View {
	active, _ := o.registry.Active()
	sessions := o.registry.Sessions()

	v := View{
		Sessions: make([]SessionView, len(sessions)),
		ActiveID: active,
		Pending:  o.pending[active],
	}
	_, v.Loading = o.loading[active]
	for i, s := range sessions {
		v.Sessions[i] = SessionView{Session: s, Active: s.ID == active}
	}
	if active != "" {
		v.Messages = o.log.Read(active)
	}
	return v
}

// activate switches sessions and issues one history fetch. Loop only.
func (o *Orchestrator) activate(sessionID string) error {
	if err := o.registry.SetActive(sessionID); err != nil {
		return err
	}
	o.log.Ensure(sessionID)

	// Issue the history fetch; older fetches for the session become stale
	call, err := o.sync.Begin(sessionID)
	if err != nil {
		return err
	}
	gen := o.sync.Generation(sessionID)
	o.loading[sessionID] = gen
	o.logger.Debug("Session activated", zap.String("session", sessionID), zap.Uint64("generation", gen))

	o.spawn(call, func(err error) {
		if o.loading[sessionID] == gen {
			delete(o.loading, sessionID)
		}
		o.settle(err)
	})
	o.changed()
	return nil
}

func (o *Orchestrator) createAndActivate() string {
	id := o.registry.CreateLocal()
	if err := o.activate(id); err != nil {
		o.logger.Error("Failed to activate local session", zap.String("session", id), zap.Error(err))
	}
	return id
}

// listSessions fetches the session listing. With fallback set, a local
// session is fabricated when nothing ends up active. Loop only.
func (o *Orchestrator) listSessions(fallback bool) {
	userID := o.opts.UserID
	call := func(ctx context.Context) workflow.Resume {
		list, err := o.gateway.ListSessions(ctx, userID)
		return func() error {
			if err != nil {
				return &workflow.GatewayError{Op: workflow.OpListSessions, Err: err}
			}
			o.mergeSessions(list)
			return nil
		}
	}

	o.spawn(call, func(err error) {
		o.settle(err)

		// Fall back to a fresh local session
		if _, ok := o.registry.Active(); !ok && fallback {
			o.createAndActivate()
		}
	})
}

func (o *Orchestrator) mergeSessions(list []history.Session) {
	before, _ := o.registry.Active()
	o.registry.LoadRemote(list)
	o.logger.Debug("Sessions merged", zap.Int("listed", len(list)), zap.Int("known", o.registry.Len()))

	after, ok := o.registry.Active()
	if ok && after != before {
		// LoadRemote only selects; the activation still has to load history.
		if err := o.activate(after); err != nil {
			o.logger.Error("Failed to activate listed session", zap.String("session", after), zap.Error(err))
		}
	}
}
