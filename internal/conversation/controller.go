// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rkai/internal/gateway"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/storage"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Transcript is the part of the transcript store the controller needs.
// *storage.TranscriptStore implements it.
type Transcript interface {
	Append(ctx context.Context, turn model.Turn) error
	Clear(ctx context.Context) error
	Turns() []model.Turn
	TextHistory() []model.Turn
	Len() int
}

var _ Transcript = (*storage.TranscriptStore)(nil)

// =============================================================================
// TIER
// =============================================================================

// Tier is the account tier. It is not persisted and starts at Standard.
type Tier int

const (
	Standard Tier = iota
	Elevated
)

// String returns the display name of the tier.
func (t Tier) String() string {
	if t == Elevated {
		return "Pro"
	}
	return "Standard"
}

// =============================================================================
// RESULT
// =============================================================================

// Result describes what a submission did.
type Result struct {
	// Accepted is false when the input was blank or a request was already
	// pending. Nothing else in the result is set in that case.
	Accepted bool

	Request  Request
	UserTurn model.Turn

	// Reply is the appended model turn, nil on failure.
	Reply *model.Turn

	// PersistErr is set when a turn was kept in memory but could not be
	// written to the slot.
	PersistErr error

	Duration time.Duration
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives submissions. It is safe for concurrent use; at most one
// submission runs at a time.
type Controller struct {
	transcript Transcript
	gateway    gateway.Gateway
	logger     zerolog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	tier    Tier
	pending string
	lastErr error
	draft   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller at the standard tier.
func NewController(t Transcript, gw gateway.Gateway, opts ...Option) *Controller {
	c := &Controller{
		transcript: t,
		gateway:    gw,
		logger:     zerolog.Nop(),
		tier:       Standard,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "conversation").Logger()
	return c
}

// Submit processes one line of user input.
//
// Blank input and input arriving while a request is pending are ignored
// (Accepted false, nil error). Otherwise the user turn is appended, the
// request classified and, unless the tier forbids it, sent to the gateway;
// the reply is appended as a model turn. Policy and generation errors are
// recorded in LastError and returned; the user turn stays in the transcript.
func (c *Controller) Submit(ctx context.Context, raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("Submission ignored, request pending")
		return Result{}, nil
	}
	defer c.finish()

	start := time.Now()
	c.mu.Lock()
	c.lastErr = nil
	c.pending = raw
	tier := c.tier
	c.mu.Unlock()

	res := Result{Accepted: true}

	// History is taken before the new turn so it only holds prior exchanges.
	history := c.transcript.TextHistory()

	res.UserTurn = model.NewUserTurn(raw)
	if err := c.appendTurn(ctx, res.UserTurn, &res); err != nil {
		return res, c.fail(err)
	}
	c.SetDraft("")

	res.Request = Classify(raw)
	log := c.logger.With().Str("kind", res.Request.Kind.String()).Str("tier", tier.String()).Logger()

	if res.Request.IsImage() && tier != Elevated {
		log.Info().Msg("Image request blocked on standard tier")
		return res, c.fail(&FeatureGatedError{Feature: "image"})
	}

	var reply model.Turn
	if res.Request.IsImage() {
		uri, err := c.gateway.CompleteImage(ctx, res.Request.Prompt)
		if err != nil {
			log.Warn().Err(err).Msg("Image generation failed")
			return res, c.fail(err)
		}
		reply = model.NewModelImageTurn(uri)
	} else {
		text, err := c.gateway.CompleteText(ctx, res.Request.Prompt, history)
		if err != nil {
			log.Warn().Err(err).Msg("Text generation failed")
			return res, c.fail(err)
		}
		reply = model.NewModelTextTurn(text)
	}

	if err := c.appendTurn(ctx, reply, &res); err != nil {
		return res, c.fail(err)
	}
	res.Reply = &reply
	res.Duration = time.Since(start)

	log.Info().Int("history", len(history)).Dur("duration", res.Duration).Msg("Submission completed")
	return res, nil
}

// appendTurn appends a turn, treating a persist failure as non-fatal.
func (c *Controller) appendTurn(ctx context.Context, turn model.Turn, res *Result) error {
	err := c.transcript.Append(ctx, turn)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrPersist) {
		c.logger.Warn().Err(err).Str("role", turn.Role.String()).Msg("Turn kept in memory only")
		res.PersistErr = err
		return nil
	}
	return err
}

// fail records err as the last error and returns it.
func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	return err
}

// finish clears the busy state. Deferred on every path out of Submit.
func (c *Controller) finish() {
	c.mu.Lock()
	c.pending = ""
	c.mu.Unlock()
	c.busy.Store(false)
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Busy reports whether a request is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Pending returns the input of the in-flight request, if any.
func (c *Controller) Pending() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.busy.Load()
}

// LastError returns the error of the most recent submission, or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Tier returns the current tier.
func (c *Controller) Tier() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier
}

// SetTier switches between the standard and elevated tiers.
func (c *Controller) SetTier(elevated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elevated {
		c.tier = Elevated
	} else {
		c.tier = Standard
	}
}

// ToggleTier flips the tier and returns the new one.
func (c *Controller) ToggleTier() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tier == Elevated {
		c.tier = Standard
	} else {
		c.tier = Elevated
	}
	return c.tier
}

// Draft returns the unsent input buffer.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the unsent input buffer.
func (c *Controller) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

// Transcript returns a copy of the turns.
func (c *Controller) Transcript() []model.Turn {
	return c.transcript.Turns()
}

// ClearTranscript empties the transcript and its slot.
func (c *Controller) ClearTranscript(ctx context.Context) error {
	if err := c.transcript.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear transcript")
		return err
	}
	c.logger.Info().Msg("Transcript cleared")
	return nil
}
