// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the widgets the authentication form is built
from.

Each widget takes a *styles.Theme and follows the Bubble Tea value style:
Update returns the updated widget and a command.

# Components

Field (field.go) - Labelled single-line input, optionally masked.
Button (button.go) - Focusable push button.
Notice (notice.go) - Modal single-button alert; sends NoticeDismissedMsg when closed.
Keyboard (keyboard.go) - Key-binding panel that announces itself on the event bus.
Spinner (spinner.go) - In-flight request indicator.

# Keyboard Events

The form has no on-screen keyboard, so the key panel plays its part. Show
and Hide publish events.KeyboardWillShow and events.KeyboardWillHide once
per transition, carrying the panel height:

	bus := events.NewBus()
	panel := components.NewKeyboard(theme, bus, components.DefaultFormKeyMap(), false)
	sub := bus.Subscribe(events.KeyboardWillShow, func(p any) {
	    frame := p.(events.KeyboardFrame)
	    // frame.Height rows are now covered
	})
	defer sub.Unsubscribe()
	panel.Show()
*/
package components
