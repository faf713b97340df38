// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/jeranaias/rkai/internal/util"
)

// SlotKey is the name of the slot holding the transcript.
const SlotKey = "rk_ai_history"

// =============================================================================
// SLOT INTERFACE
// =============================================================================

// Slot is a single durable cell holding the encoded transcript.
// Read returns ErrSlotNotFound if nothing has been written yet.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
	// Name describes the slot for logs and error messages.
	Name() string
}

// SlotOptions selects and configures a slot backend.
type SlotOptions struct {
	// Backend is one of "file", "bolt", "sqlite" or "memory".
	Backend string

	// Path is the file or database path. Ignored for "memory".
	Path string

	// Key is the slot name inside bolt and sqlite databases.
	// Defaults to SlotKey.
	Key string
}

// OpenSlot opens the slot described by opts.
func OpenSlot(opts SlotOptions) (Slot, error) {
	key := opts.Key
	if key == "" {
		key = SlotKey
	}
	path := util.ExpandHome(opts.Path)

	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "file", "json":
		return NewFileSlot(path), nil
	case "bolt", "bbolt":
		return NewBoltSlot(path, key), nil
	case "sqlite", "sqlite3":
		return OpenSQLiteSlot(path, key)
	case "memory", "ephemeral":
		return NewMemorySlot(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", opts.Backend)
	}
}

// =============================================================================
// FILE SLOT
// =============================================================================

// FileSlot stores the transcript as a JSON file, replaced atomically on write.
type FileSlot struct {
	path string
}

// NewFileSlot creates a slot backed by the file at path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// Read returns the file contents.
func (s *FileSlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotNotFound
		}
		return nil, errors.Wrap(err, "read transcript file")
	}
	return data, nil
}

// Write replaces the file contents.
func (s *FileSlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return errors.Wrap(err, "write transcript file")
	}
	return nil
}

// Close is a no-op.
func (s *FileSlot) Close() error { return nil }

// Name returns "file:<path>".
func (s *FileSlot) Name() string { return "file:" + filepath.Clean(s.path) }

// Path returns the backing file path.
func (s *FileSlot) Path() string { return s.path }

// =============================================================================
// MEMORY SLOT
// =============================================================================

// MemorySlot keeps the transcript in process memory. Used for --ephemeral
// sessions and tests.
type MemorySlot struct {
	mu      sync.Mutex
	data    []byte
	present bool
}

// NewMemorySlot creates an empty memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// NewMemorySlotWith creates a memory slot pre-filled with data.
func NewMemorySlotWith(data []byte) *MemorySlot {
	s := &MemorySlot{}
	s.data = append([]byte(nil), data...)
	s.present = true
	return s
}

// Read returns a copy of the stored bytes.
func (s *MemorySlot) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// Write stores a copy of data.
func (s *MemorySlot) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.present = true
	return nil
}

// Close is a no-op.
func (s *MemorySlot) Close() error { return nil }

// Name returns "memory".
func (s *MemorySlot) Name() string { return "memory" }
