// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rkai/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "RK AI"
	default:
		return string(r)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind is the payload kind of a turn.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in the conversation, authored by the user or the model.
// Content holds text for text turns and an image reference (a data URI) for
// image turns.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrInvalidTurn is wrapped by every error returned from Turn.Validate.
var ErrInvalidTurn = errors.New("invalid turn")

// NewTurn creates a turn with a fresh ID and the current time.
func NewTurn(role Role, kind Kind, content string) Turn {
	return Turn{
		ID:        newTurnID(),
		Role:      role,
		Content:   content,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// NewUserTurn creates a user turn. User turns are always text.
func NewUserTurn(content string) Turn {
	return NewTurn(RoleUser, KindText, content)
}

// NewModelTextTurn creates a model turn carrying generated text.
func NewModelTextTurn(content string) Turn {
	return NewTurn(RoleModel, KindText, content)
}

// NewModelImageTurn creates a model turn carrying an image reference.
func NewModelImageTurn(uri string) Turn {
	return NewTurn(RoleModel, KindImage, uri)
}

// Validate checks the structural invariants of a single turn.
func (t Turn) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidTurn)
	case !t.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTurn, t.Role)
	case !t.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTurn, t.Kind)
	case t.Role == RoleUser && t.Kind != KindText:
		return fmt.Errorf("%w: user turns must be text", ErrInvalidTurn)
	case t.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidTurn)
	}
	return nil
}

// IsImage returns true for image turns.
func (t Turn) IsImage() bool {
	return t.Kind == KindImage
}

// IsText returns true for text turns.
func (t Turn) IsText() bool {
	return t.Kind == KindText
}

// Preview returns a single-line preview of the content, truncated to maxLen
// runes. Image turns preview as a placeholder, never as raw data.
func (t Turn) Preview(maxLen int) string {
	if t.IsImage() {
		return ImagePlaceholder
	}
	return util.TruncateRunes(util.OneLine(t.Content), maxLen)
}

// ImagePlaceholder stands in for image content wherever turns are rendered as text.
const ImagePlaceholder = "[Image Generated]"

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newTurnID creates a unique turn ID.
func newTurnID() string {
	return uuid.NewString()
}
