// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity defines the contract between the auth form and an
// identity backend.
//
// The form never sees passwords hashed, tokens issued or sessions stored; it
// only calls the four Provider methods and renders the Session they report.
//
// # Key Types
//
//   - Provider: CurrentSession, CreateUser, SignIn, SignOut
//   - Session: SignedOut or SignedIn, never nil
//   - ProviderError: the only error kind; Error() is safe to show the user
//   - FileStore: JSON session persistence for remote providers
//
// # Implementations
//
//   - local: sqlite, bcrypt and signed session tokens
//   - firebase: Identity Toolkit REST API
//   - oidc: OpenID Connect password grant
//
// The providers package opens whichever one the config selects.
package identity
