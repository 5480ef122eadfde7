// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/authform/internal/ui/events"
	"github.com/jeranaias/authform/internal/ui/styles"
)

// =============================================================================
// KEY BINDINGS
// =============================================================================

// FormKeyMap holds the form's key bindings. It implements help.KeyMap.
type FormKeyMap struct {
	Next      key.Binding
	Prev      key.Binding
	Submit    key.Binding
	SignUp    key.Binding
	SignInOut key.Binding
	Dismiss   key.Binding
	Quit      key.Binding
}

// DefaultFormKeyMap returns the standard bindings.
func DefaultFormKeyMap() FormKeyMap {
	return FormKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "return"),
		),
		SignUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "sign up"),
		),
		SignInOut: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "sign in/out"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "hide keyboard"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k FormKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.SignInOut, k.Dismiss}
}

// FullHelp implements help.KeyMap.
func (k FormKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Submit},
		{k.SignUp, k.SignInOut},
		{k.Dismiss, k.Quit},
	}
}

// =============================================================================
// KEYBOARD - On-screen key panel
// =============================================================================

// Keyboard is the panel shown at the bottom of the screen while a text field
// is being edited. Like a software keyboard it takes rows away from the
// form, and it announces its frame on the bus when it appears and
// disappears.
type Keyboard struct {
	keys    FormKeyMap
	help    help.Model
	bus     *events.Bus
	theme   *styles.Theme
	visible bool
	width   int
}

// NewKeyboard creates a hidden panel. full selects the multi-column layout.
func NewKeyboard(theme *styles.Theme, bus *events.Bus, keys FormKeyMap, full bool) *Keyboard {
	h := help.New()
	h.ShowAll = full
	h.Styles.ShortKey = theme.HelpKey
	h.Styles.ShortDesc = theme.HelpDesc
	h.Styles.ShortSeparator = theme.HelpSep
	h.Styles.FullKey = theme.HelpKey
	h.Styles.FullDesc = theme.HelpDesc
	h.Styles.FullSeparator = theme.HelpSep
	return &Keyboard{keys: keys, help: h, bus: bus, theme: theme}
}

// SetWidth sets the panel width.
func (k *Keyboard) SetWidth(width int) {
	k.width = width
	k.help.Width = width - 2
}

// Visible returns whether the panel is showing.
func (k *Keyboard) Visible() bool {
	return k.visible
}

// Show reveals the panel and publishes KeyboardWillShow. Showing an already
// visible panel publishes nothing.
func (k *Keyboard) Show() {
	if k.visible {
		return
	}
	k.visible = true
	if k.bus != nil {
		k.bus.Publish(events.KeyboardWillShow, events.KeyboardFrame{Height: k.Height()})
	}
}

// Hide removes the panel and publishes KeyboardWillHide.
func (k *Keyboard) Hide() {
	if !k.visible {
		return
	}
	k.visible = false
	if k.bus != nil {
		k.bus.Publish(events.KeyboardWillHide, events.KeyboardFrame{})
	}
}

// Height returns the rows the panel occupies when visible.
func (k *Keyboard) Height() int {
	return lipgloss.Height(k.render())
}

// View renders the panel, or "" when hidden.
func (k *Keyboard) View() string {
	if !k.visible {
		return ""
	}
	return k.render()
}

func (k *Keyboard) render() string {
	style := k.theme.KeyPanel
	if k.width > 0 {
		style = style.Width(k.width)
	}
	return style.Render(k.help.View(k.keys))
}
