// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authform

import "github.com/jeranaias/authform/internal/identity"

// Button titles and the notice title.
const (
	SignUpTitle  = "Sign Up"
	SignInTitle  = "Sign In"
	SignOutTitle = "Sign Out"
	NoticeTitle  = "Error"
)

// ViewState is what the form displays for a session. It is derived on every
// refresh and never stored apart from the session it came from.
type ViewState struct {
	// Label is the signed-in email, or "" when signed out.
	Label string
	// ButtonTitle is SignOutTitle when signed in, SignInTitle otherwise.
	ButtonTitle string
}

// ViewStateFor projects a session onto the display. A nil session counts as
// signed out.
func ViewStateFor(s identity.Session) ViewState {
	if email, ok := identity.EmailOf(s); ok {
		return ViewState{Label: email, ButtonTitle: SignOutTitle}
	}
	return ViewState{ButtonTitle: SignInTitle}
}

// Field identifies one of the form's text inputs.
type Field int

const (
	// NoField means no input is being edited.
	NoField Field = iota
	EmailField
	PasswordField
)

// String returns the field name.
func (f Field) String() string {
	switch f {
	case EmailField:
		return "email"
	case PasswordField:
		return "password"
	default:
		return "none"
	}
}
