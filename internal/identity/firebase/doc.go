// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package firebase implements an identity provider backed by the Firebase
// Authentication (Identity Toolkit) REST API.
//
// Requests are sent with go-retryablehttp, so transient 5xx and 429
// responses are retried with backoff. Error codes from the API are mapped to
// the messages the Firebase client SDKs show. The session is written to a
// JSON file so the CLI and the TUI share it.
//
// Point WithEndpoint at the auth emulator
// ("http://localhost:9099/identitytoolkit.googleapis.com/v1") for local
// development.
package firebase
