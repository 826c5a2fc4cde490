package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/history"
)

// stubGateway answers from fixed tables and records what it was asked.
type stubGateway struct {
	histories  map[string][]history.Entry
	historyErr error
	reply      string
	sendErr    error

	historyCalls []string
	sends        []string
}

func (g *stubGateway) ListSessions(ctx context.Context, userID string) ([]history.Session, error) {
	return nil, nil
}

func (g *stubGateway) GetHistory(ctx context.Context, sessionID string) ([]history.Entry, error) {
	g.historyCalls = append(g.historyCalls, sessionID)
	if g.historyErr != nil {
		return nil, g.historyErr
	}
	return g.histories[sessionID], nil
}

func (g *stubGateway) SendMessage(ctx context.Context, content, sessionID string) (string, error) {
	g.sends = append(g.sends, sessionID+":"+content)
	return g.reply, g.sendErr
}

func newState(ids ...string) (*history.Registry, *history.Log) {
	r := history.NewRegistry()
	list := make([]history.Session, len(ids))
	for i, id := range ids {
		list[i] = history.Session{ID: id}
	}
	r.LoadRemote(list)
	return r, history.NewLog()
}

func contents(msgs []history.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content + ":" + m.State.String()
	}
	return out
}

func TestSend_Confirmed(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{reply: "hi there"}
	reg, log := newState("s1")
	w := NewSendWorkflow(gw, reg, log)

	ex, call, err := w.Begin("hello")
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, Sending, ex.State)
	assert.Equal(t, []string{"user:hello:optimistic"}, contents(log.Read("s1")))

	resume := call(ctx)
	require.NoError(t, resume())

	assert.Equal(t, Confirmed, ex.State)
	assert.Equal(t, "hi there", ex.Reply)
	assert.Equal(t, []string{"user:hello:confirmed", "assistant:hi there:confirmed"}, contents(log.Read("s1")))
	assert.Equal(t, []string{"s1:hello"}, gw.sends)
}

func TestSend_GatewayFailure(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{sendErr: errors.New("connection refused")}
	reg, log := newState("s1")
	w := NewSendWorkflow(gw, reg, log)

	ex, call, err := w.Begin("hello")
	require.NoError(t, err)

	err = call(ctx)()
	require.Error(t, err)

	var ge *GatewayError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, OpSendMessage, ge.Op)
	assert.Equal(t, "s1", ge.SessionID)
	assert.Equal(t, Failed, ex.State)
	assert.Equal(t, []string{"user:hello:failed"}, contents(log.Read("s1")))
}

func TestSend_EmptyReplyIsFailure(t *testing.T) {
	gw := &stubGateway{reply: "   "}
	reg, log := newState("s1")
	w := NewSendWorkflow(gw, reg, log)

	_, call, err := w.Begin("hello")
	require.NoError(t, err)

	err = call(context.Background())()
	assert.True(t, IsGatewayFailure(err))
	assert.Equal(t, []string{"user:hello:failed"}, contents(log.Read("s1")))
}

func TestSend_BlankInputIsNoop(t *testing.T) {
	gw := &stubGateway{reply: "x"}
	reg, log := newState("s1")
	w := NewSendWorkflow(gw, reg, log)

	for _, text := range []string{"", "   ", "\n\t "} {
		ex, call, err := w.Begin(text)
		assert.NoError(t, err)
		assert.Nil(t, ex)
		assert.Nil(t, call)
	}
	assert.Empty(t, log.Read("s1"))
	assert.Empty(t, gw.sends)
}

func TestSend_NoActiveSession(t *testing.T) {
	reg := history.NewRegistry()
	reg.CreateLocal()
	log := history.NewLog()
	w := NewSendWorkflow(&stubGateway{}, reg, log)

	_, _, err := w.Begin("hello")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSend_ResultLandsOnIssuingSession(t *testing.T) {
	gw := &stubGateway{reply: "for s1"}
	reg, log := newState("s1", "s2")
	w := NewSendWorkflow(gw, reg, log)

	_, call, err := w.Begin("hello")
	require.NoError(t, err)

	require.NoError(t, reg.SetActive("s2"))
	require.NoError(t, call(context.Background())())

	assert.Equal(t, []string{"user:hello:confirmed", "assistant:for s1:confirmed"}, contents(log.Read("s1")))
	assert.Empty(t, log.Read("s2"))
}

func TestSend_ConcurrentIdenticalContent(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{reply: "first"}
	reg, log := newState("s1")
	w := NewSendWorkflow(gw, reg, log)

	ex1, call1, err := w.Begin("same")
	require.NoError(t, err)
	ex2, call2, err := w.Begin("same")
	require.NoError(t, err)
	assert.NotEqual(t, ex1.Handle, ex2.Handle)

	gw.sendErr = errors.New("boom")
	resume2 := call2(ctx)
	gw.sendErr = nil
	resume1 := call1(ctx)

	assert.Error(t, resume2())
	assert.NoError(t, resume1())

	assert.Equal(t, []string{
		"user:same:confirmed",
		"assistant:first:confirmed",
		"user:same:failed",
	}, contents(log.Read("s1")))
}

func TestHistorySync_ReplacesLog(t *testing.T) {
	gw := &stubGateway{histories: map[string][]history.Entry{
		"s1": {{Role: history.RoleUser, Content: "q"}, {Role: history.RoleAssistant, Content: "a"}},
	}}
	reg, log := newState("s1")
	h := NewHistorySync(gw, reg, log)

	call, err := h.Begin("s1")
	require.NoError(t, err)
	require.NoError(t, call(context.Background())())

	assert.Equal(t, []string{"user:q:confirmed", "assistant:a:confirmed"}, contents(log.Read("s1")))
	assert.Equal(t, []string{"s1"}, gw.historyCalls)
}

func TestHistorySync_UnknownSession(t *testing.T) {
	reg, log := newState("s1")
	h := NewHistorySync(&stubGateway{}, reg, log)

	call, err := h.Begin("nope")
	assert.ErrorIs(t, err, history.ErrNotFound)
	assert.Nil(t, call)
	assert.Zero(t, h.Generation("nope"))
}

func TestHistorySync_StaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{histories: map[string][]history.Entry{}}
	reg, log := newState("s1")
	h := NewHistorySync(gw, reg, log)

	r1, err := h.Begin("s1")
	require.NoError(t, err)
	r2, err := h.Begin("s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.Generation("s1"))

	gw.histories["s1"] = []history.Entry{{Role: history.RoleAssistant, Content: "fresh"}}
	resume2 := r2(ctx)
	gw.histories["s1"] = []history.Entry{{Role: history.RoleAssistant, Content: "stale"}}
	resume1 := r1(ctx)

	require.NoError(t, resume2())
	assert.ErrorIs(t, resume1(), ErrStaleResult)

	assert.Equal(t, []string{"assistant:fresh:confirmed"}, contents(log.Read("s1")))
}

func TestHistorySync_FailureLeavesLog(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{histories: map[string][]history.Entry{
		"s1": {{Role: history.RoleUser, Content: "kept"}},
	}}
	reg, log := newState("s1")
	h := NewHistorySync(gw, reg, log)

	call, _ := h.Begin("s1")
	require.NoError(t, call(ctx)())

	gw.historyErr = errors.New("503")
	call, _ = h.Begin("s1")
	err := call(ctx)()

	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, OpGetHistory, ge.Op)
	assert.Equal(t, []string{"user:kept:confirmed"}, contents(log.Read("s1")))
}

func TestHistorySync_StaleFailureIsSilent(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{historyErr: errors.New("timeout")}
	reg, log := newState("s1")
	h := NewHistorySync(gw, reg, log)

	r1, _ := h.Begin("s1")
	_, _ = h.Begin("s1")

	assert.ErrorIs(t, r1(ctx)(), ErrStaleResult)
}

func TestHistorySync_FailureAfterSwitchIsSilent(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{historyErr: errors.New("timeout")}
	reg, log := newState("s1", "s2")
	h := NewHistorySync(gw, reg, log)

	call, err := h.Begin("s1")
	require.NoError(t, err)
	resume := call(ctx)

	require.NoError(t, reg.SetActive("s2"))
	assert.ErrorIs(t, resume(), ErrStaleResult)
}

func TestHistorySync_SuccessAfterSwitchApplies(t *testing.T) {
	ctx := context.Background()
	gw := &stubGateway{histories: map[string][]history.Entry{
		"s1": {{Role: history.RoleAssistant, Content: "kept for later"}},
	}}
	reg, log := newState("s1", "s2")
	h := NewHistorySync(gw, reg, log)

	call, err := h.Begin("s1")
	require.NoError(t, err)
	resume := call(ctx)

	require.NoError(t, reg.SetActive("s2"))
	require.NoError(t, resume())
	assert.Equal(t, []string{"assistant:kept for later:confirmed"}, contents(log.Read("s1")))
}

func TestGatewayError_Message(t *testing.T) {
	err := &GatewayError{Op: OpSendMessage, SessionID: "s1", Err: errors.New("boom")}
	assert.Equal(t, "send message for session s1: boom", err.Error())

	err = &GatewayError{Op: OpListSessions, Err: errors.New("boom")}
	assert.Equal(t, "list sessions: boom", err.Error())
	assert.True(t, IsGatewayFailure(err))
	assert.False(t, IsGatewayFailure(ErrStaleResult))
}
