// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package local implements an identity provider stored in a local sqlite
// database.
//
// Passwords are hashed with bcrypt. Each sign-in issues an HS256 token that
// is recorded in the sessions table; the current session is the single row
// of current_session. Because the state is in one file, the TUI and the CLI
// see each other's sign-ins and sign-outs.
//
// # Key Types
//
//   - Provider: identity.Provider over sqlite
//   - Claims: the JWT claims of a session token
//
// # Usage
//
//	p, err := local.Open(path, local.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//	session, err := p.SignIn(ctx, "user@example.com", "password")
package local
