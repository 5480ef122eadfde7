// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/authform/internal/ui/styles"
)

// =============================================================================
// NOTICE - Blocking, dismissable message box
// =============================================================================

// NoticeDismissedMsg is sent when the user dismisses a notice.
type NoticeDismissedMsg struct{}

// Notice is a modal message with a single OK action. While visible the
// owner should route all key input to it.
type Notice struct {
	title   string
	message string
	visible bool

	width  int
	height int
	theme  *styles.Theme
}

// NewNotice creates a hidden notice.
func NewNotice(theme *styles.Theme) Notice {
	return Notice{theme: theme}
}

// Show displays message under title.
func (n *Notice) Show(title, message string) {
	n.title = title
	n.message = message
	n.visible = true
}

// Hide dismisses the notice.
func (n *Notice) Hide() {
	n.visible = false
}

// IsVisible returns whether the notice is showing.
func (n *Notice) IsVisible() bool {
	return n.visible
}

// Title returns the current title.
func (n *Notice) Title() string { return n.title }

// Message returns the current message.
func (n *Notice) Message() string { return n.message }

// SetSize sets the area the notice is centered in.
func (n *Notice) SetSize(width, height int) {
	n.width = width
	n.height = height
}

// Update dismisses the notice on enter, esc or space, and on a click.
func (n Notice) Update(msg tea.Msg) (Notice, tea.Cmd) {
	if !n.visible {
		return n, nil
	}
	dismissed := false
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		n.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", " ":
			dismissed = true
		}
	case tea.MouseMsg:
		dismissed = msg.Type == tea.MouseLeft
	}
	if dismissed {
		n.Hide()
		return n, func() tea.Msg { return NoticeDismissedMsg{} }
	}
	return n, nil
}

// View renders the box. It is empty when hidden.
func (n Notice) View() string {
	if !n.visible {
		return ""
	}

	width := n.width
	if width == 0 {
		width = 60
	}
	inner := width - 8
	if inner < 24 {
		inner = 24
	}
	if inner > 56 {
		inner = 56
	}

	// ACCESSIBILITY: shape indicator plus high contrast title.
	title := n.theme.NoticeTitle.Render(styles.StatusIndicators.Error + " " + n.title)
	message := n.theme.NoticeMessage.Width(inner).Render(n.message)
	hint := n.theme.NoticeHint.Render("[enter] OK")

	box := n.theme.NoticeBox.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", message, "", hint))
	if n.width == 0 || n.height == 0 {
		return box
	}
	return lipgloss.Place(n.width, n.height, lipgloss.Center, lipgloss.Center, box)
}
