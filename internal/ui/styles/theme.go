// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components of the form.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// FORM
	// ==========================================================================

	Card     lipgloss.Style
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	// UserLabel shows the signed-in email.
	UserLabel lipgloss.Style

	FieldLabel        lipgloss.Style
	FieldLabelFocused lipgloss.Style
	Field             lipgloss.Style
	FieldFocused      lipgloss.Style
	Placeholder       lipgloss.Style

	Button        lipgloss.Style
	ButtonFocused lipgloss.Style

	// ==========================================================================
	// STATUS & NOTICES
	// ==========================================================================

	StatusSignedIn  lipgloss.Style
	StatusSignedOut lipgloss.Style
	StatusPending   lipgloss.Style

	NoticeBox     lipgloss.Style
	NoticeTitle   lipgloss.Style
	NoticeMessage lipgloss.Style
	NoticeHint    lipgloss.Style

	// ==========================================================================
	// KEY PANEL
	// ==========================================================================

	KeyPanel lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
	HelpSep  lipgloss.Style
}

// NewTheme creates a theme. mode is "dark", "light" or "auto"; auto asks
// the terminal.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch mode {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Card = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3)

	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)

	// Fields
	t.FieldLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FieldLabelFocused = lipgloss.NewStyle().
		Foreground(FocusRing).
		Bold(true)

	t.Field = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.FieldFocused = t.Field.
		BorderForeground(FocusRing)

	t.Placeholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Buttons
	t.Button = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 2)

	t.ButtonFocused = t.Button.
		Bold(true).
		Foreground(TextInverse).
		Background(Purple).
		BorderForeground(Purple)

	// Status
	t.StatusSignedIn = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusSignedOut = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusPending = lipgloss.NewStyle().Foreground(Amber)

	// Notice
	t.NoticeBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ErrorHighContrast).
		Padding(1, 2)

	t.NoticeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ErrorHighContrast)

	t.NoticeMessage = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.NoticeHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Key panel
	t.KeyPanel = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HelpKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.HelpDesc = lipgloss.NewStyle().Foreground(TextSecondary)
	t.HelpSep = lipgloss.NewStyle().Foreground(TextMuted)
}

// RenderStatus renders the session line with a shape indicator so the state
// does not depend on color alone.
func (t *Theme) RenderStatus(signedIn bool, text string) string {
	if signedIn {
		return t.StatusSignedIn.Render(StatusIndicators.SignedIn + " " + text)
	}
	return t.StatusSignedOut.Render(StatusIndicators.SignedOut + " " + text)
}

// RenderPending renders an in-flight request indicator.
func (t *Theme) RenderPending(text string) string {
	return t.StatusPending.Render(StatusIndicators.Pending + " " + text)
}
