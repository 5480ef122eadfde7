// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for the CLI.
//
// Handlers always return errors; main prints them and exits with
// GetExitCode.

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/authform/internal/config"
	"github.com/jeranaias/authform/internal/identity"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the identity provider rejected the request
	ExitAuthError = 4
	// ExitNetworkError indicates the identity provider could not be reached
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "config")
	Action  string // Action being performed (e.g., "init")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownCommand is returned for a command Parse does not recognize.
func ErrUnknownCommand(name string) error {
	return &ValidationError{Field: "command", Value: name, Reason: "unknown command", Example: "authform help"}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	if errors.As(err, &validationErr) || errors.As(err, &ttyErr) {
		return ExitUsageError
	}

	var configErrs config.ValidateErrors
	var configErr config.ValidationError
	if errors.As(err, &configErrs) || errors.As(err, &configErr) {
		return ExitConfigError
	}

	if identity.HasCode(err, identity.CodeNetwork) {
		return ExitNetworkError
	}
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		return ExitAuthError
	}

	return ExitGeneralError
}

// IsUsageError reports whether err means the command line was wrong.
func IsUsageError(err error) bool {
	return GetExitCode(err) == ExitUsageError
}
