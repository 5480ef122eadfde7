// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authform

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/authform/internal/ui/components"
)

// Update handles a message. After Dispose every message is ignored.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.disposed {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case authResultMsg:
		m.handleAuthResult(msg)
		return m, nil

	case sessionChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case components.NoticeDismissedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(msg)
		return m, cmd
	}

	// The notice is modal.
	if m.notice.IsVisible() {
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Quit) {
			return m.quit()
		}
		var cmd tea.Cmd
		m.notice, cmd = m.notice.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		_, cmd := m.handleKey(msg)
		return m, m.withActivity(cmd)
	case tea.MouseMsg:
		return m, m.withActivity(m.handleMouse(msg))
	}

	// Cursor blink and the like.
	return m, m.updateInputs(msg)
}

// withActivity starts the spinner alongside cmd when a request went out.
func (m *Model) withActivity(cmd tea.Cmd) tea.Cmd {
	if m.pending == 0 || m.activity.IsActive() {
		return cmd
	}
	var tick tea.Cmd
	m.activity, tick = m.activity.Start()
	return tea.Batch(cmd, tick)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.SignUp):
		return m, m.SubmitSignUp(m.email.Value(), m.password.Value())
	case key.Matches(msg, m.keys.SignInOut):
		return m, m.SubmitSignInOrOut(m.email.Value(), m.password.Value())
	case key.Matches(msg, m.keys.Dismiss):
		m.DismissKeyboard()
		return m, nil
	case key.Matches(msg, m.keys.Next):
		return m, m.focusSlot(m.nextSlot(1))
	case key.Matches(msg, m.keys.Prev):
		return m, m.focusSlot(m.nextSlot(-1))
	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()
	}
	return m, m.updateInputs(msg)
}

// submit handles return on whatever has focus.
func (m *Model) submit() tea.Cmd {
	switch m.focus {
	case slotEmail:
		if m.ReturnKey(EmailField) {
			return m.FocusField(PasswordField)
		}
	case slotPassword:
		m.ReturnKey(PasswordField)
	case slotSignUp:
		return m.SubmitSignUp(m.email.Value(), m.password.Value())
	case slotSignInOut:
		return m.SubmitSignInOrOut(m.email.Value(), m.password.Value())
	}
	return nil
}

// handleMouse focuses a clicked input, presses a clicked button and
// dismisses the key panel on any other click in the form.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Type {
	case tea.MouseWheelUp, tea.MouseWheelDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case tea.MouseLeft:
	default:
		return nil
	}

	// Clicks on the status line or the key panel do nothing.
	if msg.Y >= m.viewport.Height {
		return nil
	}
	row := msg.Y + m.viewport.YOffset
	l := m.layout
	switch {
	case within(row, l.emailTop, components.FieldHeight):
		return m.FocusField(EmailField)
	case within(row, l.passwordTop, components.FieldHeight):
		return m.FocusField(PasswordField)
	case within(row, l.buttonsTop, components.ButtonHeight):
		switch {
		case msg.X >= l.signUpLeft && msg.X < l.signUpRight:
			m.DismissKeyboard()
			return m.SubmitSignUp(m.email.Value(), m.password.Value())
		case msg.X >= l.signInOutLeft && msg.X < l.signInOutRight:
			m.DismissKeyboard()
			return m.SubmitSignInOrOut(m.email.Value(), m.password.Value())
		}
	}
	m.DismissKeyboard()
	return nil
}

func within(row, top, height int) bool {
	return row >= top && row < top+height
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.active {
	case EmailField:
		m.email, cmd = m.email.Update(msg)
	case PasswordField:
		m.password, cmd = m.password.Update(msg)
	}
	return cmd
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.Dispose()
	return m, tea.Quit
}

// SetCredentials fills the inputs, as if typed.
func (m *Model) SetCredentials(email, password string) {
	m.email.SetValue(email)
	m.password.SetValue(password)
}

// Credentials returns the input values.
func (m *Model) Credentials() (email, password string) {
	return m.email.Value(), m.password.Value()
}
