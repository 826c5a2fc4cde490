package terminal

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Lines(t *testing.T) {
	r := NewReader(strings.NewReader("hello\r\n  spaced  \n\nlast"))
	ctx := context.Background()

	for _, want := range []string{"hello", "  spaced  ", "", "last"} {
		got, err := r.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		kind  CommandKind
		args  []string
	}{
		{"hello there", CmdNone, nil},
		{"  /", CmdNone, nil},
		{"/sessions", CmdSessions, []string{}},
		{"/switch 2", CmdSwitch, []string{"2"}},
		{"/S session-abc", CmdSwitch, []string{"session-abc"}},
		{"/new", CmdNew, []string{}},
		{"/history", CmdHistory, []string{}},
		{"/summary", CmdSummary, []string{}},
		{"/refresh", CmdRefresh, []string{}},
		{"/clear", CmdClear, []string{}},
		{"/help", CmdHelp, []string{}},
		{"/quit", CmdExit, []string{}},
		{"exit", CmdExit, nil},
		{"/frobnicate now", CmdUnknown, []string{"now"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd := ParseCommand(tt.input)
			assert.Equal(t, tt.kind, cmd.Kind)
			assert.Equal(t, tt.args, cmd.Args)
		})
	}
}
