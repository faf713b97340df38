// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rkai/internal/model"
)

func openTestSlots(t *testing.T) map[string]Slot {
	t.Helper()
	dir := t.TempDir()

	sqliteSlot, err := OpenSQLiteSlot(filepath.Join(dir, "rkai.db"), SlotKey)
	require.NoError(t, err)

	slots := map[string]Slot{
		"file":   NewFileSlot(filepath.Join(dir, "history.json")),
		"bolt":   NewBoltSlot(filepath.Join(dir, "rkai.bolt"), SlotKey),
		"sqlite": sqliteSlot,
		"memory": NewMemorySlot(),
	}
	t.Cleanup(func() {
		for _, s := range slots {
			s.Close()
		}
	})
	return slots
}

func TestSlots_ReadBeforeWrite(t *testing.T) {
	ctx := context.Background()
	for name, slot := range openTestSlots(t) {
		t.Run(name, func(t *testing.T) {
			_, err := slot.Read(ctx)
			assert.ErrorIs(t, err, ErrSlotNotFound)
		})
	}
}

func TestSlots_WriteRead(t *testing.T) {
	ctx := context.Background()
	for name, slot := range openTestSlots(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, slot.Write(ctx, []byte(`[{"id":"1"}]`)))
			require.NoError(t, slot.Write(ctx, []byte(`[]`)))

			data, err := slot.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, "[]", string(data))
			assert.NotEmpty(t, slot.Name())
		})
	}
}

func TestSlots_TranscriptRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, slot := range openTestSlots(t) {
		t.Run(name, func(t *testing.T) {
			store := NewTranscriptStore(slot)
			store.Load(ctx)
			require.NoError(t, store.Append(ctx, model.NewUserTurn("ping")))
			require.NoError(t, store.Append(ctx, model.NewModelTextTurn("pong")))

			turns := NewTranscriptStore(slot).Load(ctx)
			require.Len(t, turns, 2)
			assert.Equal(t, "ping", turns[0].Content)
			assert.Equal(t, "pong", turns[1].Content)
		})
	}
}

func TestSlots_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, slot := range openTestSlots(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, slot.Write(ctx, []byte("[]")))
		})
	}
}

func TestBoltSlot_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.bolt")
	a := NewBoltSlot(path, "a")
	b := NewBoltSlot(path, "b")

	require.NoError(t, a.Write(ctx, []byte("A")))
	_, err := b.Read(ctx)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	require.NoError(t, b.Write(ctx, []byte("B")))
	got, err := a.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
}

func TestFileSlot_UnreadableIsNotAbsent(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be cannot be read as a file.
	path := filepath.Join(dir, "history.json")
	require.NoError(t, os.Mkdir(path, 0o700))

	store := NewTranscriptStore(NewFileSlot(path))
	assert.Empty(t, store.Load(context.Background()))
	report := store.LastLoad()
	assert.False(t, report.Absent)
	assert.Error(t, report.Err)
	assert.False(t, report.Corrupt())
}

func TestOpenSlot(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    string
	}{
		{"", "*storage.FileSlot"},
		{"file", "*storage.FileSlot"},
		{"bolt", "*storage.BoltSlot"},
		{"sqlite", "*storage.SQLiteSlot"},
		{"memory", "*storage.MemorySlot"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			slot, err := OpenSlot(SlotOptions{Backend: tt.backend, Path: filepath.Join(dir, "slot-"+tt.backend)})
			require.NoError(t, err)
			defer slot.Close()
			assert.Equal(t, tt.want, typeName(slot))
		})
	}

	_, err := OpenSlot(SlotOptions{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func typeName(v any) string {
	switch v.(type) {
	case *FileSlot:
		return "*storage.FileSlot"
	case *BoltSlot:
		return "*storage.BoltSlot"
	case *SQLiteSlot:
		return "*storage.SQLiteSlot"
	case *MemorySlot:
		return "*storage.MemorySlot"
	default:
		return "unknown"
	}
}
