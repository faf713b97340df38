// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotNotFound is returned by Slot.Read when nothing was ever written.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrPersist is matched by every failure to write the transcript snapshot.
	ErrPersist = errors.New("failed to persist transcript")

	// ErrPersistenceCorrupt marks a stored document that could not be parsed
	// at all. It is only ever reported through LoadReport.
	ErrPersistenceCorrupt = errors.New("persisted transcript is corrupt")

	// ErrDuplicateTurn is returned when appending a turn whose ID is already present.
	ErrDuplicateTurn = errors.New("duplicate turn id")

	// ErrUnknownBackend is returned by OpenSlot for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// PersistError wraps a slot write failure.
type PersistError struct {
	Op   string // "append" or "clear"
	Slot string
	Err  error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: persist %s to %s: %v", ErrPersist, e.Op, e.Slot, e.Err)
}

// Unwrap returns the underlying slot error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPersist.
func (e *PersistError) Is(target error) bool {
	return target == ErrPersist
}
