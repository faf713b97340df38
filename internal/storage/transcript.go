// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rkai/internal/model"
)

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore owns the ordered list of turns and keeps the slot in sync
// with it. It is safe for concurrent use.
type TranscriptStore struct {
	mu     sync.RWMutex
	slot   Slot
	turns  []model.Turn
	ids    map[string]struct{}
	policy MalformedPolicy
	logger zerolog.Logger
	last   LoadReport
}

// StoreOption configures a TranscriptStore.
type StoreOption func(*TranscriptStore)

// WithMalformedPolicy sets how Load treats bad entries. Default: DropMalformed.
func WithMalformedPolicy(p MalformedPolicy) StoreOption {
	return func(s *TranscriptStore) { s.policy = p }
}

// WithLogger sets the store logger. Default: no logging.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *TranscriptStore) { s.logger = l }
}

// NewTranscriptStore creates an empty store over slot. Call Load to restore
// the persisted transcript.
func NewTranscriptStore(slot Slot, opts ...StoreOption) *TranscriptStore {
	s := &TranscriptStore{
		slot:   slot,
		ids:    make(map[string]struct{}),
		policy: DropMalformed,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "transcript").Str("slot", slot.Name()).Logger()
	return s
}

// =============================================================================
// LOAD
// =============================================================================

// Load replaces the in-memory transcript with the persisted one and returns
// a copy. It never fails: an absent slot gives an empty transcript, and so
// does an unreadable or corrupt one (reported via LastLoad).
func (s *TranscriptStore) Load(ctx context.Context) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := LoadReport{Slot: s.slot.Name()}
	var turns []model.Turn

	data, err := s.slot.Read(ctx)
	switch {
	case errors.Is(err, ErrSlotNotFound):
		report.Absent = true
	case err != nil:
		report.Err = err
		s.logger.Warn().Err(err).Msg("Failed to read transcript, starting empty")
	default:
		var decodeReport LoadReport
		turns, decodeReport, err = decodeTranscript(data, s.policy)
		decodeReport.Slot = report.Slot
		report = decodeReport
		if err != nil {
			report.Err = err
			turns = nil
			s.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Transcript is corrupt, starting empty")
		}
	}

	s.turns = turns
	s.ids = make(map[string]struct{}, len(turns))
	for _, t := range turns {
		s.ids[t.ID] = struct{}{}
	}
	s.last = report

	if report.Dropped > 0 || report.Repaired > 0 || report.Clamped > 0 {
		s.logger.Warn().
			Int("kept", report.Kept).
			Int("dropped", report.Dropped).
			Int("repaired", report.Repaired).
			Int("clamped", report.Clamped).
			Str("policy", s.policy.String()).
			Msg("Recovered malformed transcript entries")
	} else {
		s.logger.Debug().Int("turns", report.Kept).Bool("absent", report.Absent).Msg("Transcript loaded")
	}

	return s.copyTurns()
}

// LastLoad returns the report of the most recent Load.
func (s *TranscriptStore) LastLoad() LoadReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Append adds a turn at the end of the transcript and persists the snapshot.
// The turn must be valid and its ID unused. A timestamp earlier than the
// last turn's is moved forward to it.
//
// If persisting fails the turn stays in memory and a PersistError is returned.
func (s *TranscriptStore) Append(ctx context.Context, turn model.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[turn.ID]; dup {
		return errors.Wrapf(ErrDuplicateTurn, "%s", turn.ID)
	}
	if n := len(s.turns); n > 0 && turn.Timestamp.Before(s.turns[n-1].Timestamp) {
		turn.Timestamp = s.turns[n-1].Timestamp
	}

	s.turns = append(s.turns, turn)
	s.ids[turn.ID] = struct{}{}

	return s.persistLocked(ctx, "append")
}

// Clear empties the transcript and persists the empty state. Calling it on
// an empty transcript is not an error.
func (s *TranscriptStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.ids = make(map[string]struct{})

	return s.persistLocked(ctx, "clear")
}

// persistLocked writes the full snapshot. Caller holds s.mu.
func (s *TranscriptStore) persistLocked(ctx context.Context, op string) error {
	data, err := encodeTranscript(s.turns)
	if err == nil {
		err = s.slot.Write(ctx, data)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Int("turns", len(s.turns)).Msg("Failed to persist transcript")
		return &PersistError{Op: op, Slot: s.slot.Name(), Err: err}
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Turns returns a copy of the transcript in order.
func (s *TranscriptStore) Turns() []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTurns()
}

// Len returns the number of turns.
func (s *TranscriptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// TextHistory returns the text turns in order, skipping image turns.
func (s *TranscriptStore) TextHistory() []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if t.IsText() {
			out = append(out, t)
		}
	}
	return out
}

// LastImage returns the most recent image turn, if any.
func (s *TranscriptStore) LastImage() (model.Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].IsImage() {
			return s.turns[i], true
		}
	}
	return model.Turn{}, false
}

// Close closes the underlying slot.
func (s *TranscriptStore) Close() error {
	return s.slot.Close()
}

func (s *TranscriptStore) copyTurns() []model.Turn {
	out := make([]model.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}
