// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the provider's view of who is signed in. It is either
// SignedOut or SignedIn; there is no nil session.
type Session interface {
	session()
}

// SignedOut means nobody is signed in.
type SignedOut struct{}

// SignedIn carries the authenticated user.
type SignedIn struct {
	Email  string
	UserID string
	// ExpiresAt is when the current credential lapses. Zero if unknown.
	ExpiresAt time.Time
}

func (SignedOut) session() {}
func (SignedIn) session()  {}

// IsSignedIn reports whether s is a SignedIn session.
func IsSignedIn(s Session) bool {
	_, ok := s.(SignedIn)
	return ok
}

// EmailOf returns the signed-in email, or "" and false when signed out.
func EmailOf(s Session) (string, bool) {
	if in, ok := s.(SignedIn); ok {
		return in.Email, true
	}
	return "", false
}

// Describe renders a session for status lines and logs.
func Describe(s Session) string {
	if email, ok := EmailOf(s); ok {
		return "signed in as " + email
	}
	return "signed out"
}

// =============================================================================
// PROVIDER
// =============================================================================

// Provider is the narrow contract between the form and an identity backend.
// Implementations own credential checks, token issuance, session persistence
// and network retry. Every failure is returned as a *ProviderError.
//
// CreateUser, SignIn and SignOut may block and are called off the UI loop.
// CurrentSession must be cheap; it is called on the UI loop.
type Provider interface {
	CurrentSession() Session
	CreateUser(ctx context.Context, email, password string) (SignedIn, error)
	SignIn(ctx context.Context, email, password string) (SignedIn, error)
	SignOut(ctx context.Context) error
}

// Watchable is implemented by providers whose session state lives in a file.
// Changes to that file may have been made by another process and should be
// picked up by re-reading CurrentSession.
type Watchable interface {
	WatchPath() string
}

// Closer is implemented by providers holding resources such as a database.
type Closer interface {
	Close() error
}

// Named is implemented by providers that can report their kind for display.
type Named interface {
	Name() string
}

// NameOf returns the provider's name, or "custom" if it has none.
func NameOf(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// =============================================================================
// ERRORS
// =============================================================================

// GenericMessage is shown when a failure carries no user-facing message.
const GenericMessage = "An internal error has occurred, print and inspect the error details for more information."

// ProviderError is the single error kind a Provider returns. Message is fit
// to show the user verbatim; Err is the underlying cause for the log.
type ProviderError struct {
	// Code is a stable machine-readable reason, e.g. "EMAIL_EXISTS". Optional.
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return GenericMessage
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewError returns a ProviderError with the given message and cause.
func NewError(code, message string, cause error) *ProviderError {
	return &ProviderError{Code: code, Message: message, Err: cause}
}

// AsProviderError returns err as a *ProviderError, wrapping anything else
// under the generic message. nil stays nil.
func AsProviderError(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Code: "INTERNAL", Message: GenericMessage, Err: err}
}

// HasCode reports whether err is a ProviderError with the given code.
func HasCode(err error, code string) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}
