// Package tui hosts the shared terminal style palette and the loop
// dashboard: the observation-only bubbletea view a running loop renders
// its iteration lifecycle into.
package tui

import "github.com/ralph-loop/ralph/internal/style"

// Color palette, shared by every styled surface (colorscheme, stream
// handlers, dashboard). Re-exported from internal/style, which holds
// the canonical definitions so iostreams can use them without
// depending on tui.
var (
	ColorPrimary   = style.ColorPrimary
	ColorSecondary = style.ColorSecondary
	ColorSuccess   = style.ColorSuccess
	ColorWarning   = style.ColorWarning
	ColorError     = style.ColorError
	ColorMuted     = style.ColorMuted
	ColorHighlight = style.ColorHighlight
	ColorInfo      = style.ColorInfo
)

// Common text styles. iostreams.ColorScheme wraps these so command
// code never touches lipgloss directly.
var (
	TitleStyle      = style.TitleStyle
	SubtitleStyle   = style.SubtitleStyle
	ErrorStyle      = style.ErrorStyle
	SuccessStyle    = style.SuccessStyle
	WarningStyle    = style.WarningStyle
	MutedStyle      = style.MutedStyle
	HighlightStyle  = style.HighlightStyle
	StatusInfoStyle = style.StatusInfoStyle
)
