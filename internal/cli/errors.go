// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for CLI commands.
//
// Commands always return errors and never print-and-return-nil; Execute
// displays the error once and maps it to an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/commands"
	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/export"
	"github.com/jeranaias/rkai/internal/gateway"
	"github.com/jeranaias/rkai/internal/session"
	"github.com/jeranaias/rkai/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a rejected passphrase or a locked session
	ExitAuthError = 4
	// ExitNetworkError indicates the model request failed
	ExitNetworkError = 5
	// ExitPolicyError indicates a feature not available on the current tier
	ExitPolicyError = 6
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "history")
	Action  string // Action being performed (e.g., "clear")
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
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
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

// ErrUnsupportedFormat creates an error for unsupported formats.
func ErrUnsupportedFormat(format string, supported []string) error {
	return &ValidationError{
		Field:   "format",
		Value:   format,
		Reason:  "unsupported format",
		Example: fmt.Sprintf("supported formats: %v", supported),
	}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes an error in a consistent format.
// In JSON mode, outputs a structured JSON error instead.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(w, command, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[ERROR]"), err.Error())
}

// DisplayErrorJSON writes an error in the --json response envelope, with
// the exit code and error details as data.
func DisplayErrorJSON(w io.Writer, command string, err error) {
	output := map[string]interface{}{
		"exit_code": GetExitCode(err),
	}

	var cmdErr *CommandError
	var valErr *ValidationError
	switch {
	case errors.As(err, &cmdErr):
		output["error_type"] = "command_error"
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
		output["reason"] = cmdErr.Reason
	case errors.As(err, &valErr):
		output["error_type"] = "validation_error"
		output["field"] = valErr.Field
		output["value"] = valErr.Value
		output["reason"] = valErr.Reason
	default:
		output["error_type"] = "generic_error"
	}

	resp := NewJSONErrorResponse(command, err)
	resp.Data = output
	_ = resp.Print(w)
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		validationErr *ValidationError
		argErr        *commands.ValidationError
		ttyErr        *TTYRequiredError
		configErrs    config.ValidateErrors
		credErr       *session.InvalidCredentialError
		gatedErr      *conversation.FeatureGatedError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &argErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &configErrs), errors.Is(err, storage.ErrUnknownBackend), errors.Is(err, gateway.ErrNotConfigured):
		return ExitConfigError
	case errors.As(err, &credErr), errors.Is(err, app.ErrLocked):
		return ExitAuthError
	case errors.As(err, &gatedErr):
		return ExitPolicyError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.Is(err, gateway.ErrGenerationFailed):
		return ExitNetworkError
	case errors.Is(err, export.ErrEmptyTranscript), errors.Is(err, commands.ErrNoImage), errors.Is(err, commands.ErrUnknownCommand):
		return ExitNotFoundError
	}
	return ExitGeneralError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
