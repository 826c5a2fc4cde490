// Package ui renders the chat to a line-oriented terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"chatsync/internal/backend"
	"chatsync/internal/history"
	"chatsync/internal/orchestrator"
)

const (
	defaultWidth = 80
	maxWidth     = 100
)

// Display writes the conversation to a terminal. It is safe for use by the
// input loop and the change watcher at the same time.
type Display struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	tty      bool
	recent   int
	renderer *glamour.TermRenderer
	st       styles
	tracker  tracker
}

// Options configures a Display
type Options struct {
	// Markdown renders assistant replies with glamour.
	Markdown bool
	// Recent bounds how many messages a history block shows; 0 shows all.
	Recent int
}

// NewDisplay creates a display writing to out
func NewDisplay(out io.Writer, opts Options) *Display {
	width, tty := terminalSize(out)

	d := &Display{
		out:    out,
		width:  width,
		tty:    tty,
		recent: opts.Recent,
		st:     newStyles(lipgloss.NewRenderer(out)),
	}

	if opts.Markdown {
		style := glamour.WithStandardStyle("notty")
		if tty {
			style = glamour.WithAutoStyle()
		}
		renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width-4))
		if err == nil {
			d.renderer = renderer
		}
	}
	return d
}

// terminalSize reports the usable width of out and whether it is a terminal.
func terminalSize(out io.Writer) (int, bool) {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth, true
	}
	return min(width, maxWidth), true
}

func (d *Display) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tty {
		d.printf("\033[2J\033[H")
	}
}

// PrintWelcome displays the banner and the backend in use
func (d *Display) PrintWelcome(backendURL string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.printf("%s\n", d.st.banner.Render("chatsync - multi-session chat"))
	d.printf("\n%s %s\n", d.st.muted.Render("Backend:"), backendURL)
	d.printf("%s\n\n", d.st.muted.Render("Type /help for commands, /exit to quit"))
}

// PrintPrompt displays the user input prompt
func (d *Display) PrintPrompt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s ", d.st.success.Render("❯"))
}

// Render prints whatever changed in the active session since the last call.
func (d *Display) Render(v orchestrator.View) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ev := range d.tracker.update(v) {
		switch ev.kind {
		case eventSwitched:
			d.printHeader(v)
		case eventLoading:
			d.printf("%s\n", d.st.muted.Render("Loading history..."))
		case eventLoaded:
			d.printMessages(v.Messages)
		case eventMessage:
			d.printMessage(ev.msg)
		case eventFailed:
			d.printf("%s %s\n", d.st.err.Render("✗ Not delivered:"), ev.msg.Content)
		}
	}
}

// Reset forgets what was printed so the next Render redraws the session.
func (d *Display) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracker = tracker{}
}

// PrintHistory prints the most recent messages of the session
func (d *Display) PrintHistory(v orchestrator.View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printHeader(v)
	if len(v.Messages) == 0 {
		d.printf("%s\n", d.st.muted.Render("No messages yet."))
		return
	}
	d.printMessages(v.Messages)
}

func (d *Display) printHeader(v orchestrator.View) {
	label := "no session"
	for _, s := range v.Sessions {
		if s.Active {
			label = s.Label()
		}
	}
	line := strings.Repeat("─", 3)
	d.printf("\n%s %s %s\n", d.st.muted.Render(line), d.st.title.Render(label), d.st.muted.Render(line))
}

func (d *Display) printMessages(msgs []history.Message) {
	if d.recent > 0 && len(msgs) > d.recent {
		d.printf("%s\n", d.st.muted.Render(fmt.Sprintf("... %d earlier messages", len(msgs)-d.recent)))
		msgs = msgs[len(msgs)-d.recent:]
	}
	for _, m := range msgs {
		d.printMessage(m)
	}
}

func (d *Display) printMessage(m history.Message) {
	switch m.Role {
	case history.RoleUser:
		d.printf("\n%s %s\n", d.st.user.Render("┌─ You"), d.stamp(m))
		d.printf("%s %s\n", d.st.muted.Render("│"), m.Content)
	default:
		d.printf("\n%s %s\n", d.st.assistant.Render("┌─ Assistant"), d.stamp(m))
		for _, line := range strings.Split(d.markdown(m.Content), "\n") {
			d.printf("%s %s\n", d.st.muted.Render("│"), line)
		}
	}
	d.printf("%s\n", d.st.muted.Render("└"))
}

// stamp formats the time and, for local messages, the delivery state.
func (d *Display) stamp(m history.Message) string {
	parts := []string{}
	if !m.CreatedAt.IsZero() {
		parts = append(parts, m.CreatedAt.Local().Format("15:04:05"))
	}
	switch m.State {
	case history.StateOptimistic:
		parts = append(parts, "sending")
	case history.StateFailed:
		parts = append(parts, d.st.err.Render("failed"))
	}
	if len(parts) == 0 {
		return ""
	}
	return d.st.muted.Render("· ") + strings.Join(parts, d.st.muted.Render(" · "))
}

func (d *Display) markdown(content string) string {
	if d.renderer == nil {
		return content
	}
	rendered, err := d.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// PrintSessions lists known sessions with their selection index
func (d *Display) PrintSessions(sessions []orchestrator.SessionView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(sessions) == 0 {
		d.printf("%s\n", d.st.muted.Render("No sessions."))
		return
	}
	d.printf("\n%s\n", d.st.title.Render("Sessions"))
	for i, s := range sessions {
		marker := " "
		label := s.Label()
		if s.Active {
			marker = d.st.active.Render("●")
			label = d.st.active.Render(label)
		}
		created := ""
		if !s.CreatedAt.IsZero() {
			created = d.st.muted.Render("  created " + s.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		d.printf(" %s %2d. %s %s%s\n", marker, i+1, label, d.st.muted.Render("("+s.ID+")"), created)
	}
}

// PrintSummary displays a session summary
func (d *Display) PrintSummary(label string, s backend.Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.printf("\n%s\n", d.st.title.Render("Summary of "+label))
	if s.OneLiner != "" {
		d.printf("%s\n", d.st.assistant.Render(s.OneLiner))
	}
	if s.FullSummary != "" {
		d.printf("\n%s\n", d.markdown(s.FullSummary))
	}
	for _, p := range s.BulletPoints {
		d.printf("  • %s\n", p)
	}
}

// PrintNotice reports a recoverable backend failure
func (d *Display) PrintNotice(n orchestrator.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("\n%s %s %s\n", d.st.warning.Render("⚠"), n.String(), d.st.muted.Render(n.At.Local().Format("15:04:05")))
}

// PrintHelp lists the available commands
func (d *Display) PrintHelp(commands []CommandHelp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.printf("\n%s\n", d.st.title.Render("Commands"))
	for _, c := range commands {
		d.printf("  %-18s %s\n", c.Usage, d.st.muted.Render(c.Summary))
	}
}

// CommandHelp is one line of the help listing
type CommandHelp struct {
	Usage   string
	Summary string
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s\n", d.st.info.Render("ℹ "+msg))
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s\n", d.st.warning.Render("⚠ "+msg))
}

// PrintError displays error message
func (d *Display) PrintError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s\n", d.st.err.Render(fmt.Sprintf("✗ Error: %v", err)))
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("%s\n", d.st.success.Render("✓ "+msg))
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("\n%s\n", d.st.info.Render("Goodbye!"))
}
