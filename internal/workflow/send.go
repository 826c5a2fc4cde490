package workflow

import (
	"context"
	"errors"
	"strings"

	"chatsync/internal/history"
)

// SendState is the state of one send exchange
type SendState int

const (
	Idle SendState = iota
	Sending
	Confirmed
	Failed
)

func (s SendState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Exchange is one user-initiated send and its eventual outcome
type Exchange struct {
	SessionID string
	Handle    history.Handle
	Content   string
	State     SendState
	Reply     string
}

// SendWorkflow appends optimistic user messages and reconciles them with the
// backend reply.
type SendWorkflow struct {
	gateway  Gateway
	registry *history.Registry
	log      *history.Log
}

// NewSendWorkflow creates a send workflow
func NewSendWorkflow(gw Gateway, registry *history.Registry, log *history.Log) *SendWorkflow {
	return &SendWorkflow{gateway: gw, registry: registry, log: log}
}

// Begin appends the optimistic message to the active session and returns the
// gateway call. Blank text is a no-op and yields a nil exchange and call.
func (w *SendWorkflow) Begin(text string) (*Exchange, Call, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	sessionID, ok := w.registry.Active()
	if !ok {
		return nil, nil, ErrNoActiveSession
	}

	// The outcome lands on this scope even if another session is active by then.
	scope := w.log.Scope(sessionID)
	ex := &Exchange{
		SessionID: sessionID,
		Content:   text,
		State:     Sending,
	}
	ex.Handle = scope.AppendOptimistic(text)

	call := func(ctx context.Context) Resume {
		reply, err := w.gateway.SendMessage(ctx, text, sessionID)
		if err == nil && strings.TrimSpace(reply) == "" {
			err = errors.New("empty response")
		}
		return func() error {
			return w.complete(scope, ex, reply, err)
		}
	}
	return ex, call, nil
}

func (w *SendWorkflow) complete(scope history.Scope, ex *Exchange, reply string, err error) error {
	if err != nil {
		ex.State = Failed
		if markErr := scope.MarkFailed(ex.Handle); markErr != nil {
			return markErr
		}
		return &GatewayError{Op: OpSendMessage, SessionID: ex.SessionID, Err: err}
	}

	if err := scope.ConfirmExchange(ex.Handle, reply); err != nil {
		return err
	}
	ex.State = Confirmed
	ex.Reply = reply
	return nil
}
