// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authform

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/ui/components"
	"github.com/jeranaias/authform/internal/ui/styles"
)

const (
	statusHeight  = 1
	maxFieldWidth = 48
	buttonGap     = 2
)

// layout records where each control landed in the scrollable content, in
// content rows and screen columns.
type layout struct {
	emailTop    int
	passwordTop int
	buttonsTop  int

	signUpLeft     int
	signUpRight    int
	signInOutLeft  int
	signInOutRight int

	rows int
}

// =============================================================================
// SIZING
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.keyboard.SetWidth(width)
	m.notice.SetSize(width, height)
	if m.keyboard.Visible() {
		m.inset = m.keyboard.Height()
	}

	fieldWidth := width - 10
	if fieldWidth > maxFieldWidth {
		fieldWidth = maxFieldWidth
	}
	m.email.SetWidth(fieldWidth)
	m.password.SetWidth(fieldWidth)

	m.resizeViewport()
	m.relayout()
	m.scrollToActive()
}

func (m *Model) resizeViewport() {
	h := m.height - statusHeight - m.inset
	if h < 0 {
		h = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// =============================================================================
// SCROLLING
// =============================================================================

func (m *Model) scrollToActive() {
	switch m.active {
	case EmailField:
		m.scrollTo(m.layout.emailTop, components.FieldHeight)
	case PasswordField:
		m.scrollTo(m.layout.passwordTop, components.FieldHeight)
	}
}

// scrollTo moves the viewport the least distance that shows rows
// [top, top+height).
func (m *Model) scrollTo(top, height int) {
	m.relayout()
	visible := m.viewport.Height
	if visible <= 0 {
		return
	}
	y := m.viewport.YOffset
	switch {
	case top < y:
		m.viewport.SetYOffset(top)
	case top+height > y+visible:
		m.viewport.SetYOffset(top + height - visible)
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// relayout renders the form into the viewport and records control positions.
func (m *Model) relayout() {
	content, l := m.renderForm()
	m.layout = l
	m.viewport.SetContent(content)
}

func (m *Model) renderForm() (string, layout) {
	t := m.theme

	user := t.Subtitle.Render("Not signed in")
	if m.state.Label != "" {
		user = t.UserLabel.Render(m.state.Label)
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		m.signUp.View(),
		lipgloss.NewStyle().Width(buttonGap).Render(""),
		m.signInOut.View(),
	)

	parts := []string{
		t.Title.Render("Authentication"),
		t.Subtitle.Render(identity.NameOf(m.provider) + " account"),
		"",
		user,
		"",
		m.email.View(),
		"",
		m.password.View(),
		"",
		buttons,
	}

	var l layout
	row := 0
	for i, p := range parts {
		switch i {
		case 5:
			l.emailTop = row
		case 7:
			l.passwordTop = row
		case 9:
			l.buttonsTop = row
		}
		row += lipgloss.Height(p)
	}

	card := t.Card.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	cardWidth, cardHeight := lipgloss.Width(card), lipgloss.Height(card)

	left := 0
	if m.width > cardWidth {
		left = (m.width - cardWidth) / 2
	}
	top := 0
	if area := m.height - statusHeight; area > cardHeight {
		top = (area - cardHeight) / 2
	}

	innerTop := top + t.Card.GetBorderTopSize() + t.Card.GetPaddingTop()
	innerLeft := left + t.Card.GetBorderLeftSize() + t.Card.GetPaddingLeft()
	l.emailTop += innerTop
	l.passwordTop += innerTop
	l.buttonsTop += innerTop

	l.signUpLeft = innerLeft
	l.signUpRight = l.signUpLeft + lipgloss.Width(m.signUp.View())
	l.signInOutLeft = l.signUpRight + buttonGap
	l.signInOutRight = l.signInOutLeft + lipgloss.Width(m.signInOut.View())
	l.rows = top + cardHeight

	return lipgloss.NewStyle().MarginTop(top).MarginLeft(left).Render(card), l
}

// View renders the form, the status line and, while editing, the key panel.
// A visible notice covers everything.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.notice.IsVisible() {
		return m.notice.View()
	}

	m.relayout()
	parts := []string{m.viewport.View(), m.statusLine()}
	if panel := m.keyboard.View(); panel != "" {
		parts = append(parts, panel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) statusLine() string {
	line := m.theme.RenderStatus(identity.IsSignedIn(m.session), identity.Describe(m.session))
	if m.pending > 0 {
		if spin := m.activity.View(); spin != "" {
			line += "  " + spin
		} else {
			line += "  " + m.theme.RenderPending("working...")
		}
	}
	return lipgloss.NewStyle().
		Width(m.width).
		MaxHeight(statusHeight).
		Foreground(styles.TextSecondary).
		Render(line)
}
