package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorUser      = lipgloss.Color("#A78BFA") // Light purple
	ColorAssistant = lipgloss.Color("#22D3EE") // Cyan
	ColorInfo      = lipgloss.Color("#06B6D4")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorError     = lipgloss.Color("#EF4444")
	ColorSuccess   = lipgloss.Color("#10B981")
)

// styles are bound to the renderer of one output so color support is
// detected per writer.
type styles struct {
	title     lipgloss.Style
	muted     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	active    lipgloss.Style
	info      lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	success   lipgloss.Style
	banner    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:     r.NewStyle().Bold(true).Foreground(ColorPrimary),
		muted:     r.NewStyle().Foreground(ColorMuted),
		user:      r.NewStyle().Bold(true).Foreground(ColorUser),
		assistant: r.NewStyle().Bold(true).Foreground(ColorAssistant),
		active:    r.NewStyle().Bold(true).Foreground(ColorSuccess),
		info:      r.NewStyle().Foreground(ColorInfo),
		warning:   r.NewStyle().Foreground(ColorWarning),
		err:       r.NewStyle().Foreground(ColorError),
		success:   r.NewStyle().Foreground(ColorSuccess),
		banner: r.NewStyle().
			Bold(true).
			Foreground(ColorAssistant).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2),
	}
}
