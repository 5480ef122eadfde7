// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "strconv"

// Reason codes shared by every backend. They follow the Identity Toolkit
// names so the Firebase provider can pass them through unchanged.
const (
	CodeEmailExists      = "EMAIL_EXISTS"
	CodeEmailNotFound    = "EMAIL_NOT_FOUND"
	CodeInvalidPassword  = "INVALID_PASSWORD"
	CodeInvalidEmail     = "INVALID_EMAIL"
	CodeWeakPassword     = "WEAK_PASSWORD"
	CodeTooManyAttempts  = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeUserDisabled     = "USER_DISABLED"
	CodeNotAllowed       = "OPERATION_NOT_ALLOWED"
	CodeNetwork          = "NETWORK_REQUEST_FAILED"
	CodeInvalidCredInfo  = "INVALID_LOGIN_CREDENTIALS"
	CodeSessionNotActive = "NO_CURRENT_USER"
)

var messages = map[string]string{
	CodeEmailExists:      "The email address is already in use by another account.",
	CodeEmailNotFound:    "There is no user record corresponding to this identifier. The user may have been deleted.",
	CodeInvalidPassword:  "The password is invalid or the user does not have a password.",
	CodeInvalidEmail:     "The email address is badly formatted.",
	CodeTooManyAttempts:  "We have blocked all requests from this device due to unusual activity. Try again later.",
	CodeUserDisabled:     "The user account has been disabled by an administrator.",
	CodeNotAllowed:       "The given sign-in provider is disabled for this project.",
	CodeNetwork:          "Network error (such as timeout, interrupted connection or unreachable host) has occurred.",
	CodeInvalidCredInfo:  "The supplied auth credential is incorrect, malformed or has expired.",
	CodeSessionNotActive: "No user is currently signed in.",
}

// MessageFor returns the user-facing text for a reason code, or "" if the
// code has none.
func MessageFor(code string) string {
	return messages[code]
}

// Errorf builds a ProviderError for a known reason code.
func Errorf(code string, cause error) *ProviderError {
	return NewError(code, MessageFor(code), cause)
}

// WeakPassword builds the error for a password shorter than minLen.
func WeakPassword(minLen int) *ProviderError {
	return NewError(CodeWeakPassword,
		"The password must be "+strconv.Itoa(minLen)+" characters long or more.", nil)
}
