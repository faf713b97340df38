// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/rkai/internal/model"
)

// Gateway performs completion requests against a hosted model.
type Gateway interface {
	// CompleteText returns a reply to prompt given the prior text turns.
	CompleteText(ctx context.Context, prompt string, history []model.Turn) (string, error)

	// CompleteImage returns an image reference (a data URI) for prompt.
	CompleteImage(ctx context.Context, prompt string) (string, error)
}

// Operation names used in GenerationError.Op.
const (
	OpText  = "text"
	OpImage = "image"
)

var (
	// ErrGenerationFailed is matched by every GenerationError.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("gemini API key not configured (set GEMINI_API_KEY)")

	// ErrNoImage indicates the response carried no inline image data.
	ErrNoImage = errors.New("no image generated")
)

// GenerationError describes a failed completion. Reason is suitable for
// showing to the user.
type GenerationError struct {
	Op     string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason == "" {
		reason = "Something went wrong."
	}
	return fmt.Sprintf("%s generation failed: %s", e.Op, reason)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// Message returns the user-facing reason without the operation prefix.
func (e *GenerationError) Message() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "Something went wrong."
}
