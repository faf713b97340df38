// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/session"
	"github.com/jeranaias/rkai/internal/storage"
)

type stubGateway struct {
	calls int
}

func (g *stubGateway) CompleteText(ctx context.Context, prompt string, history []model.Turn) (string, error) {
	g.calls++
	return "echo: " + prompt, nil
}

func (g *stubGateway) CompleteImage(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return "data:image/png;base64,AAAA", nil
}

func newTestApp(t *testing.T, cfg *config.Config, slot storage.Slot) (*App, *stubGateway) {
	t.Helper()
	gw := &stubGateway{}
	a, err := New(context.Background(), cfg, zerolog.Nop(), WithGateway(gw), WithSlot(slot))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, gw
}

// =============================================================================
// GATE
// =============================================================================

func TestApp_StartsLocked(t *testing.T) {
	a, _ := newTestApp(t, nil, storage.NewMemorySlot())

	assert.False(t, a.IsUnlocked())

	_, err := a.Conversation()
	assert.ErrorIs(t, err, ErrLocked)

	_, err = a.Transcript()
	assert.ErrorIs(t, err, ErrLocked)
}

func TestApp_UnlockAndLock(t *testing.T) {
	a, gw := newTestApp(t, nil, storage.NewMemorySlot())

	err := a.Unlock("nope")
	var invalid *session.InvalidCredentialError
	require.True(t, errors.As(err, &invalid))
	assert.False(t, a.IsUnlocked())

	require.NoError(t, a.Unlock("1234"))
	ctrl, err := a.Conversation()
	require.NoError(t, err)

	res, err := ctrl.Submit(context.Background(), "hello")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, 1, gw.calls)

	a.Lock()
	_, err = a.Conversation()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, a.Unlock("rkai"))
	turns, err := a.Transcript()
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestApp_CustomSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Secrets = []string{"open-sesame"}
	a, _ := newTestApp(t, cfg, storage.NewMemorySlot())

	assert.Error(t, a.Unlock("rkai"))
	assert.NoError(t, a.Unlock("open-sesame"))
}

// =============================================================================
// STARTUP LOAD
// =============================================================================

func TestApp_LoadsPersistedTranscript(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "file"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "history.json")

	first, err := New(context.Background(), cfg, zerolog.Nop(), WithGateway(&stubGateway{}))
	require.NoError(t, err)
	require.NoError(t, first.Unlock("rkai"))
	ctrl, err := first.Conversation()
	require.NoError(t, err)
	_, err = ctrl.Submit(context.Background(), "remember me")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(context.Background(), cfg, zerolog.Nop(), WithGateway(&stubGateway{}))
	require.NoError(t, err)
	defer second.Close()

	report := second.LoadReport()
	assert.False(t, report.Absent)
	assert.Equal(t, 2, report.Kept)

	require.NoError(t, second.Unlock("rkai"))
	turns, err := second.Transcript()
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "remember me", turns[0].Content)
	assert.Equal(t, model.RoleModel, turns[1].Role)
}

func TestApp_CorruptSlotStartsEmpty(t *testing.T) {
	a, _ := newTestApp(t, nil, storage.NewMemorySlotWith([]byte("{not json")))

	report := a.LoadReport()
	assert.True(t, report.Corrupt())

	require.NoError(t, a.Unlock("rkai"))
	turns, err := a.Transcript()
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestApp_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "redis"

	_, err := New(context.Background(), cfg, zerolog.Nop(), WithGateway(&stubGateway{}))
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestApp_CloseTwice(t *testing.T) {
	a, _ := newTestApp(t, nil, storage.NewMemorySlot())
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestNewGeminiGateway_FromConfig(t *testing.T) {
	cfg := config.Default().Gemini
	cfg.TextModel = "gemini-x"
	gw := NewGeminiGateway(cfg, zerolog.Nop())

	assert.Equal(t, "gemini-x", gw.TextModel())
	assert.False(t, gw.IsConfigured())
}
