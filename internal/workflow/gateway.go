// Package workflow implements the two asynchronous workflows of a chat
// session: history synchronization on activation and optimistic sends.
//
// Each workflow is split at its single suspension point. Begin runs on the
// orchestrator loop and mutates state synchronously; it returns a Call that
// performs the gateway request off the loop. The Call yields a Resume, which
// must be run back on the loop to apply the outcome.
package workflow

import (
	"context"

	"chatsync/internal/history"
)

// Gateway is the request/response contract of the chat backend
type Gateway interface {
	ListSessions(ctx context.Context, userID string) ([]history.Session, error)
	GetHistory(ctx context.Context, sessionID string) ([]history.Entry, error)
	SendMessage(ctx context.Context, content, sessionID string) (string, error)
}

// Call performs the suspended part of a workflow and returns its continuation.
type Call func(ctx context.Context) Resume

// Resume applies the outcome of a Call. It returns a *GatewayError when the
// backend failed and ErrStaleResult when the outcome was discarded.
type Resume func() error
