package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chatsync/internal/history"
	"chatsync/internal/orchestrator"
	"chatsync/internal/terminal"
	"chatsync/internal/ui"
	"chatsync/internal/workflow"
)

var helpLines = []ui.CommandHelp{
	{Usage: "/sessions", Summary: "list known sessions"},
	{Usage: "/switch <n|id>", Summary: "switch to a session by number, id or id suffix"},
	{Usage: "/new", Summary: "start a new session"},
	{Usage: "/history", Summary: "show the active session's messages"},
	{Usage: "/summary", Summary: "ask the backend to summarize the active session"},
	{Usage: "/refresh", Summary: "reload the session list from the backend"},
	{Usage: "/clear", Summary: "clear the screen"},
	{Usage: "/help", Summary: "show this help"},
	{Usage: "/exit", Summary: "quit"},
}

// runChat runs the interactive chat until the user exits or a signal arrives.
func runChat(parent context.Context, a *app, in io.Reader) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Print welcome message
	a.display.ClearScreen()
	a.display.PrintWelcome(a.client.BaseURL())
	// Health check (non-fatal)
	if err := a.client.HealthCheck(ctx); err != nil {
		a.logger.Warn("Backend health check failed", zap.Error(err))
		a.display.PrintWarning(err.Error())
	}

	orch := orchestrator.New(a.client, a.orchestratorOptions())
	repl := &chatREPL{
		app:    a,
		orch:   orch,
		reader: terminal.NewReader(in),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(gctx)
	})
	g.Go(func() error {
		return watch(gctx, orch, a.display)
	})
	g.Go(func() error {
		// Leaving the REPL stops the loop and the watcher.
		defer cancel()
		return repl.run(gctx)
	})

	err := g.Wait()
	a.display.PrintGoodbye()
	return err
}

// watch renders state changes and notices as they happen.
func watch(ctx context.Context, orch *orchestrator.Orchestrator, display *ui.Display) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-orch.Notices():
			display.PrintNotice(n)
		case <-orch.Changes():
			v, err := orch.View(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, orchestrator.ErrStopped) {
					return nil
				}
				return err
			}
			display.Render(v)
		}
	}
}

type chatREPL struct {
	*app
	orch   *orchestrator.Orchestrator
	reader *terminal.Reader
}

func (r *chatREPL) run(ctx context.Context) error {
	if err := r.orch.Bootstrap(ctx); err != nil {
		return stopped(ctx, err)
	}

	// Main conversation loop
	for {
		r.display.PrintPrompt()
		input, err := r.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		done, err := r.handle(ctx, input)
		if err != nil {
			if stopped(ctx, err) == nil {
				return nil
			}
			r.display.PrintError(err)
		}
		if done {
			return nil
		}
	}
}

// stopped maps shutdown errors to nil.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, orchestrator.ErrStopped) {
		return nil
	}
	return err
}

// handle executes one input line and reports whether the user asked to quit.
func (r *chatREPL) handle(ctx context.Context, input string) (bool, error) {
	cmd := terminal.ParseCommand(input)
	r.logger.Debug("Input", zap.Int("kind", int(cmd.Kind)), zap.String("command", cmd.Name))

	switch cmd.Kind {
	case terminal.CmdNone:
		err := r.orch.Send(ctx, input)
		if errors.Is(err, workflow.ErrNoActiveSession) {
			r.display.PrintWarning("No active session yet. Use /new to start one.")
			return false, nil
		}
		return false, err

	case terminal.CmdExit:
		return true, nil

	case terminal.CmdHelp:
		r.display.PrintHelp(helpLines)

	case terminal.CmdSessions:
		v, err := r.orch.View(ctx)
		if err != nil {
			return false, err
		}
		r.display.PrintSessions(v.Sessions)

	case terminal.CmdSwitch:
		if len(cmd.Args) != 1 {
			r.display.PrintWarning("Usage: /switch <n|id>")
			return false, nil
		}
		v, err := r.orch.View(ctx)
		if err != nil {
			return false, err
		}
		id, err := resolveSession(v.Sessions, cmd.Args[0])
		if err != nil {
			return false, err
		}
		return false, r.orch.SelectSession(ctx, id)

	case terminal.CmdNew:
		id, err := r.orch.NewSession(ctx)
		if err != nil {
			return false, err
		}
		r.display.PrintSuccess("Started " + history.Session{ID: id}.Label())

	case terminal.CmdHistory:
		v, err := r.orch.View(ctx)
		if err != nil {
			return false, err
		}
		r.display.PrintHistory(v)

	case terminal.CmdSummary:
		v, err := r.orch.View(ctx)
		if err != nil {
			return false, err
		}
		if v.ActiveID == "" {
			return false, workflow.ErrNoActiveSession
		}
		s, err := r.client.Summary(ctx, v.ActiveID)
		if err != nil {
			return false, fmt.Errorf("summary: %w", err)
		}
		r.display.PrintSummary(history.Session{ID: v.ActiveID}.Label(), s)

	case terminal.CmdRefresh:
		if err := r.orch.RefreshSessions(ctx); err != nil {
			return false, err
		}
		r.display.PrintInfo("Refreshing sessions...")

	case terminal.CmdClear:
		r.display.ClearScreen()
		r.display.PrintWelcome(r.client.BaseURL())
		v, err := r.orch.View(ctx)
		if err != nil {
			return false, err
		}
		r.display.Reset()
		r.display.Render(v)

	default:
		r.display.PrintWarning(fmt.Sprintf("Unknown command /%s. Type /help for the list.", cmd.Name))
	}
	return false, nil
}

// resolveSession finds a session by exact id, 1-based position or unique id
// suffix, in that order.
func resolveSession(sessions []orchestrator.SessionView, ref string) (string, error) {
	for _, s := range sessions {
		if s.ID == ref {
			return s.ID, nil
		}
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return "", fmt.Errorf("session number %d out of range 1-%d", n, len(sessions))
		}
		return sessions[n-1].ID, nil
	}

	var matches []string
	for _, s := range sessions {
		if strings.HasSuffix(s.ID, ref) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("session %q: %w", ref, history.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session %q is ambiguous: matches %s", ref, strings.Join(matches, ", "))
	}
}
