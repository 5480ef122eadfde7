// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identitytest provides an in-memory identity.Provider for tests.
package identitytest

import (
	"context"
	"sync"

	"github.com/jeranaias/authform/internal/identity"
)

// Fake is a scriptable identity.Provider. By default CreateUser and SignIn
// succeed and sign the given email in, and SignOut succeeds. Set the Err
// fields to make an operation fail. All methods are safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	session identity.Session

	CreateUserErr error
	SignInErr     error
	SignOutErr    error

	// Path, when set, is returned from WatchPath.
	Path string

	calls map[string]int
	// gate, when non-nil, blocks CreateUser and SignIn until a value arrives.
	gate chan struct{}
}

// New returns a Fake holding session s. A nil s means signed out.
func New(s identity.Session) *Fake {
	if s == nil {
		s = identity.SignedOut{}
	}
	return &Fake{session: s, calls: make(map[string]int)}
}

// SignedInAs returns a Fake with email already signed in.
func SignedInAs(email string) *Fake {
	return New(identity.SignedIn{Email: email, UserID: "uid-" + email})
}

// Hold makes CreateUser and SignIn block until Release is called once per
// pending call.
func (f *Fake) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

// Release lets one held call proceed.
func (f *Fake) Release() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// SetSession replaces the session, as if another process changed it.
func (f *Fake) SetSession(s identity.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// SetErrors sets the failure of each operation under the lock.
func (f *Fake) SetErrors(createUser, signIn, signOut error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateUserErr, f.SignInErr, f.SignOutErr = createUser, signIn, signOut
}

// Calls returns how many times op ("CurrentSession", "CreateUser", "SignIn",
// "SignOut") was called.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalMutations returns the number of CreateUser, SignIn and SignOut calls.
func (f *Fake) TotalMutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls["CreateUser"] + f.calls["SignIn"] + f.calls["SignOut"]
}

func (f *Fake) record(op string) (chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	switch op {
	case "CreateUser":
		return f.gate, f.CreateUserErr
	case "SignIn":
		return f.gate, f.SignInErr
	case "SignOut":
		return nil, f.SignOutErr
	}
	return nil, nil
}

// CurrentSession implements identity.Provider.
func (f *Fake) CurrentSession() identity.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CurrentSession"]++
	return f.session
}

// CreateUser implements identity.Provider.
func (f *Fake) CreateUser(ctx context.Context, email, password string) (identity.SignedIn, error) {
	return f.authenticate(ctx, "CreateUser", email)
}

// SignIn implements identity.Provider.
func (f *Fake) SignIn(ctx context.Context, email, password string) (identity.SignedIn, error) {
	return f.authenticate(ctx, "SignIn", email)
}

func (f *Fake) authenticate(ctx context.Context, op, email string) (identity.SignedIn, error) {
	gate, err := f.record(op)
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return identity.SignedIn{}, ctx.Err()
		}
	}
	if err != nil {
		return identity.SignedIn{}, err
	}
	s := identity.SignedIn{Email: email, UserID: "uid-" + email}
	f.SetSession(s)
	return s, nil
}

// SignOut implements identity.Provider.
func (f *Fake) SignOut(ctx context.Context) error {
	if _, err := f.record("SignOut"); err != nil {
		return err
	}
	f.SetSession(identity.SignedOut{})
	return nil
}

// WatchPath implements identity.Watchable.
func (f *Fake) WatchPath() string {
	return f.Path
}

// Name implements identity.Named.
func (f *Fake) Name() string { return "fake" }
