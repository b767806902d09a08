// Package styles holds the lipgloss styles shared by TUI views.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	PrimaryColor   = lipgloss.Color("#A78BFA")
	SecondaryColor = lipgloss.Color("#10B981")
	WarningColor   = lipgloss.Color("#F59E0B")
	ErrorColor     = lipgloss.Color("#F87171")
	MutedColor     = lipgloss.Color("#9CA3AF")
	BorderColor    = lipgloss.Color("#6B7280")
)

// Styles groups the styles a view renders with.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Spinner  lipgloss.Style
	Box      lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() *Styles {
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(MutedColor).Italic(true),
		Success:  lipgloss.NewStyle().Foreground(SecondaryColor),
		Warning:  lipgloss.NewStyle().Foreground(WarningColor),
		Error:    lipgloss.NewStyle().Foreground(ErrorColor).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(MutedColor),
		Spinner:  lipgloss.NewStyle().Foreground(PrimaryColor),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1),
	}
}
