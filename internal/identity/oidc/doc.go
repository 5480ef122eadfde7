// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package oidc implements an identity provider for OpenID Connect issuers
// (Auth0, Keycloak, Okta) that allow the resource-owner password grant.
//
// The issuer is discovered on first use. Every ID token is verified against
// the issuer's keys and the client ID before its email claim is trusted.
// Registration is not available through this grant, so CreateUser always
// fails with a user-facing explanation.
package oidc
