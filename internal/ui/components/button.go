// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import "github.com/jeranaias/authform/internal/ui/styles"

// ButtonHeight is the number of rows a Button renders.
const ButtonHeight = 3

// Button is a focusable bordered label.
type Button struct {
	Title   string
	focused bool
	theme   *styles.Theme
}

// NewButton creates a button.
func NewButton(theme *styles.Theme, title string) Button {
	return Button{Title: title, theme: theme}
}

// Focus highlights the button.
func (b *Button) Focus() { b.focused = true }

// Blur removes the highlight.
func (b *Button) Blur() { b.focused = false }

// Focused returns whether the button is highlighted.
func (b *Button) Focused() bool { return b.focused }

// View renders the button.
func (b Button) View() string {
	if b.focused {
		return b.theme.ButtonFocused.Render(b.Title)
	}
	return b.theme.Button.Render(b.Title)
}
