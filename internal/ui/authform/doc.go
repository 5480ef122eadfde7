// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package authform provides the sign-up / sign-in / sign-out form.

The form is a Bubble Tea model that turns key presses and clicks into calls
on an identity.Provider and turns the results back into what is displayed.
It never caches the session: every successful call, and every change to the
provider's session file, re-reads CurrentSession and derives a fresh
ViewState from it.

# Key Types

  - Model: the Bubble Tea model. Use it by pointer.
  - ViewState: the label and the sign-in/out button title for a session.
  - Field: the email and password inputs.

# Session Flow

  - Load (called by Init) reads the session. Signed out is a normal state.
  - SubmitSignUp and SubmitSignInOrOut return a tea.Cmd that runs the
    provider call off the loop. Failures open a modal notice with the
    provider's message. Empty email or password makes them no-ops.
  - Sign-out runs on the loop. A failure is logged and nothing else.

# Keyboard Avoidance

While an input is focused the key panel sits at the bottom of the screen.
It announces itself on an events.Bus; the form's subscriptions shrink the
viewport by the panel's height and scroll the focused input into view.
Dispose releases those subscriptions and the session watcher.

# Usage

	form := authform.New(provider, authform.WithLogger(logger))
	defer form.Dispose()
	p := tea.NewProgram(form, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
*/
package authform
