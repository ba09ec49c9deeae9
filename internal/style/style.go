// Package style hosts the shared terminal color/style palette used by
// both internal/tui and internal/iostreams, without either depending
// on the other.
package style

import "github.com/charmbracelet/lipgloss"

// Color palette, shared by every styled surface (colorscheme, stream
// handlers, dashboard).
var (
	ColorPrimary   = lipgloss.Color("#7D56F4")
	ColorSecondary = lipgloss.Color("#6C6C6C")
	ColorSuccess   = lipgloss.Color("#04B575")
	ColorWarning   = lipgloss.Color("#FFCC00")
	ColorError     = lipgloss.Color("#FF5F87")
	ColorMuted     = lipgloss.Color("#626262")
	ColorHighlight = lipgloss.Color("#AD58B4")
	ColorInfo      = lipgloss.Color("#87CEEB")
)

// Common text styles. iostreams.ColorScheme wraps these so command
// code never touches lipgloss directly.
var (
	TitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SubtitleStyle   = lipgloss.NewStyle().Foreground(ColorSecondary)
	ErrorStyle      = lipgloss.NewStyle().Foreground(ColorError)
	SuccessStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	MutedStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
	HighlightStyle  = lipgloss.NewStyle().Foreground(ColorHighlight)
	StatusInfoStyle = lipgloss.NewStyle().Foreground(ColorInfo)
)
