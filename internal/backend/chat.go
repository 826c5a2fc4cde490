package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatsync/internal/history"
)

// ErrEmptyReply is returned when the backend accepts a message but answers
// with no text.
var ErrEmptyReply = errors.New("empty response")

// SendMessage posts one user message to a session and returns the reply
func (c *Client) SendMessage(ctx context.Context, content, sessionID string) (string, error) {
	var resp chatResponse
	err := c.do(ctx, http.MethodPost, "/chat/chat", chatRequest{Message: content, SessionID: sessionID}, &resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", ErrEmptyReply
	}
	return resp.Response, nil
}

// GetHistory returns the authoritative history of a session. A session the
// backend has no history for yields an empty list.
func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]history.Entry, error) {
	var raw []historyEntry
	err := c.do(ctx, http.MethodGet, "/chat/history/"+escape(sessionID), nil, &raw)
	if IsNotFound(err) {
		return []history.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return toEntries(raw), nil
}

// ListSessions returns the sessions of userID, or every session the backend
// knows when userID is empty.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]history.Session, error) {
	// Per-user listing when logged in
	path := "/chat/sessions"
	if userID != "" {
		path = "/chat/users/" + escape(userID) + "/sessions"
	}

	var refs []sessionRef
	err := c.do(ctx, http.MethodGet, path, nil, &refs)
	if IsNotFound(err) {
		return []history.Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	return toSessions(refs), nil
}

// Login exchanges credentials for the opaque user id used to list sessions
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/chat/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("login response carries no user id")
	}
	return resp.UserID, nil
}

// Summary requests a digest of the session's conversation
func (c *Client) Summary(ctx context.Context, sessionID string) (Summary, error) {
	var s Summary
	if err := c.do(ctx, http.MethodGet, "/chat/summary/"+escape(sessionID), nil, &s); err != nil {
		return Summary{}, err
	}
	return s, nil
}
