// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/gateway"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/session"
	"github.com/jeranaias/rkai/internal/storage"
)

// ErrLocked is returned for any conversation access while the gate is locked.
var ErrLocked = errors.New("session is locked")

// App owns the core components and their closers.
type App struct {
	Config  *config.Config
	Gate    *session.Gate
	Store   *storage.TranscriptStore
	Gateway gateway.Gateway

	controller *conversation.Controller
	logger     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Option customizes New.
type Option func(*options)

type options struct {
	gateway gateway.Gateway
	slot    storage.Slot
}

// WithGateway replaces the Gemini gateway built from config.
func WithGateway(gw gateway.Gateway) Option {
	return func(o *options) { o.gateway = gw }
}

// WithSlot replaces the slot opened from the [storage] section.
func WithSlot(slot storage.Slot) Option {
	return func(o *options) { o.slot = slot }
}

// New builds the application from cfg and loads the persisted transcript.
// A corrupt or unreadable slot never fails startup; see LoadReport.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	slot := o.slot
	if slot == nil {
		var err error
		slot, err = storage.OpenSlot(storage.SlotOptions{
			Backend: cfg.Storage.Backend,
			Path:    cfg.Storage.ResolvedPath(),
			Key:     cfg.Storage.Key,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(err, "open transcript slot")
		}
	}

	policy, _ := storage.ParseMalformedPolicy(cfg.Storage.MalformedPolicy)
	store := storage.NewTranscriptStore(slot,
		storage.WithMalformedPolicy(policy),
		storage.WithLogger(logger),
	)
	store.Load(ctx)

	gw := o.gateway
	if gw == nil {
		gw = NewGeminiGateway(cfg.Gemini, logger)
	}

	a := &App{
		Config:     cfg,
		Gate:       session.NewGate(cfg.Auth.Secrets),
		Store:      store,
		Gateway:    gw,
		controller: conversation.NewController(store, gw, conversation.WithLogger(logger)),
		logger:     logger.With().Str("component", "app").Logger(),
	}

	report := store.LastLoad()
	a.logger.Info().
		Str("slot", report.Slot).
		Int("turns", report.Kept).
		Bool("absent", report.Absent).
		Msg("transcript loaded")
	return a, nil
}

// NewGeminiGateway configures a Gemini gateway from the [gemini] section.
func NewGeminiGateway(cfg config.GeminiConfig, logger zerolog.Logger) *gateway.GeminiGateway {
	return gateway.NewGeminiGateway(cfg.APIKey).
		WithBaseURL(cfg.BaseURL).
		WithTextModel(cfg.TextModel).
		WithImageModel(cfg.ImageModel).
		WithSystemInstruction(cfg.SystemInstruction).
		WithAspectRatio(cfg.AspectRatio).
		WithTimeout(cfg.Timeout()).
		WithRateLimit(cfg.RateLimitPerMinute, cfg.RateBurst).
		WithLogger(logger)
}

// =============================================================================
// SESSION
// =============================================================================

// Unlock attempts to open the gate. The returned error is an
// *session.InvalidCredentialError on mismatch.
func (a *App) Unlock(candidate string) error {
	if err := a.Gate.AttemptUnlock(candidate); err != nil {
		a.logger.Info().Msg("unlock rejected")
		return err
	}
	a.logger.Info().Msg("session unlocked")
	return nil
}

// Lock closes the gate. A pending request is not interrupted.
func (a *App) Lock() {
	a.Gate.Lock()
	a.logger.Info().Msg("session locked")
}

// IsUnlocked reports the gate state.
func (a *App) IsUnlocked() bool {
	return a.Gate.IsUnlocked()
}

// Conversation returns the controller, or ErrLocked.
func (a *App) Conversation() (*conversation.Controller, error) {
	if !a.Gate.IsUnlocked() {
		return nil, ErrLocked
	}
	return a.controller, nil
}

// Transcript returns a copy of the transcript, or ErrLocked.
func (a *App) Transcript() ([]model.Turn, error) {
	if !a.Gate.IsUnlocked() {
		return nil, ErrLocked
	}
	return a.Store.Turns(), nil
}

// LastImage returns the most recent image turn, or ErrLocked.
func (a *App) LastImage() (model.Turn, bool, error) {
	if !a.Gate.IsUnlocked() {
		return model.Turn{}, false, ErrLocked
	}
	turn, ok := a.Store.LastImage()
	return turn, ok, nil
}

// LoadReport describes the startup load of the transcript.
func (a *App) LoadReport() storage.LoadReport {
	return a.Store.LastLoad()
}

// Close releases the transcript slot. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.Store.Close()
	})
	return a.closeErr
}
