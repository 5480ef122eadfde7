// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/authform/internal/ui/styles"
)

// =============================================================================
// FIELD COMPONENT - Labelled single-line text input
// =============================================================================

// FieldHeight is the number of rows a Field renders: label plus a bordered
// input.
const FieldHeight = 4

// Field is a labelled text input. Secret fields echo bullets.
type Field struct {
	label string
	input textinput.Model
	width int
	theme *styles.Theme
}

// NewField creates a field. The input starts blurred.
func NewField(theme *styles.Theme, label, placeholder string, secret bool) Field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	ti.PlaceholderStyle = theme.Placeholder
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(styles.Cyan)
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}

	f := Field{label: label, input: ti, theme: theme}
	f.SetWidth(40)
	return f
}

// Label returns the field's label.
func (f *Field) Label() string { return f.label }

// Focus focuses the input and returns the cursor blink command.
func (f *Field) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input.
func (f *Field) Blur() {
	f.input.Blur()
}

// Focused returns whether the input is focused.
func (f *Field) Focused() bool {
	return f.input.Focused()
}

// Value returns the current text.
func (f *Field) Value() string {
	return f.input.Value()
}

// SetValue replaces the text.
func (f *Field) SetValue(value string) {
	f.input.SetValue(value)
}

// Reset clears the text.
func (f *Field) Reset() {
	f.input.Reset()
}

// SetWidth sets the outer width including the border.
func (f *Field) SetWidth(width int) {
	if width < 16 {
		width = 16
	}
	f.width = width
	// Border (2) + padding (2) + one cell for the cursor.
	f.input.Width = width - 5
}

// Update forwards messages to the input. Only a focused input reacts to keys.
func (f Field) Update(msg tea.Msg) (Field, tea.Cmd) {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the label and the bordered input.
func (f Field) View() string {
	labelStyle, boxStyle := f.theme.FieldLabel, f.theme.Field
	if f.input.Focused() {
		labelStyle, boxStyle = f.theme.FieldLabelFocused, f.theme.FieldFocused
	}
	box := boxStyle.Width(f.width - 2).Render(f.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, labelStyle.Render(f.label), box)
}
