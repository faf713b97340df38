// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/rkai/internal/model"
)

// =============================================================================
// MALFORMED ENTRY POLICY
// =============================================================================

// MalformedPolicy decides what Load does with entries that fail validation.
type MalformedPolicy int

const (
	// DropMalformed discards every entry with any defect.
	DropMalformed MalformedPolicy = iota

	// DefaultTimestamp keeps entries whose only defect is an unparseable or
	// missing timestamp, giving them the previous entry's timestamp (the
	// Unix epoch for the first entry). Other defects are still dropped.
	DefaultTimestamp
)

// String returns the config name of the policy.
func (p MalformedPolicy) String() string {
	switch p {
	case DefaultTimestamp:
		return "default-timestamp"
	default:
		return "drop"
	}
}

// ParseMalformedPolicy parses a config value. Unknown values return false.
func ParseMalformedPolicy(s string) (MalformedPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop", "drop-malformed":
		return DropMalformed, true
	case "default-timestamp", "default_timestamp", "repair":
		return DefaultTimestamp, true
	default:
		return DropMalformed, false
	}
}

// =============================================================================
// LOAD REPORT
// =============================================================================

// LoadReport describes the outcome of the last Load.
type LoadReport struct {
	Slot     string
	Absent   bool  // nothing stored yet
	Kept     int   // entries restored
	Dropped  int   // entries discarded
	Repaired int   // entries kept with a substituted timestamp
	Clamped  int   // timestamps moved forward to keep order
	Err      error // read failure or ErrPersistenceCorrupt; never returned by Load
}

// Corrupt reports whether the stored document could not be parsed at all.
func (r LoadReport) Corrupt() bool {
	return errors.Is(r.Err, ErrPersistenceCorrupt)
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

// record is the persisted form of a turn.
type record struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Type      string          `json:"type,omitempty"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// encodeTranscript serializes turns as a JSON array with RFC 3339 timestamps.
func encodeTranscript(turns []model.Turn) ([]byte, error) {
	type out struct {
		ID        string `json:"id"`
		Role      string `json:"role"`
		Content   string `json:"content"`
		Type      string `json:"type"`
		Timestamp string `json:"timestamp"`
	}
	recs := make([]out, 0, len(turns))
	for _, t := range turns {
		recs = append(recs, out{
			ID:        t.ID,
			Role:      t.Role.String(),
			Content:   t.Content,
			Type:      t.Kind.String(),
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, errors.Wrap(err, "encode transcript")
	}
	return data, nil
}

// decodeTranscript parses a stored document, applying policy to bad entries.
// A document that is not a JSON array yields ErrPersistenceCorrupt.
func decodeTranscript(data []byte, policy MalformedPolicy) ([]model.Turn, LoadReport, error) {
	var report LoadReport

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, report, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, report, errors.Wrapf(ErrPersistenceCorrupt, "%v", err)
	}

	turns := make([]model.Turn, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	var prev time.Time // zero until the first kept entry

	for _, entry := range raw {
		var rec record
		if err := json.Unmarshal(entry, &rec); err != nil {
			report.Dropped++
			continue
		}

		turn := model.Turn{
			ID:      strings.TrimSpace(rec.ID),
			Role:    model.Role(rec.Role),
			Content: rec.Content,
			Kind:    model.Kind(rec.Type),
		}
		if rec.Type == "" {
			turn.Kind = model.KindText
		}

		ts, tsOK := parseTimestamp(rec.Timestamp)
		repaired := false
		if !tsOK {
			if policy != DefaultTimestamp {
				report.Dropped++
				continue
			}
			if prev.IsZero() {
				ts = time.Unix(0, 0).UTC()
			} else {
				ts = prev
			}
			repaired = true
		}
		turn.Timestamp = ts

		if err := turn.Validate(); err != nil {
			report.Dropped++
			continue
		}
		if _, dup := seen[turn.ID]; dup {
			report.Dropped++
			continue
		}

		if !prev.IsZero() && turn.Timestamp.Before(prev) {
			turn.Timestamp = prev
			report.Clamped++
		}

		seen[turn.ID] = struct{}{}
		prev = turn.Timestamp
		turns = append(turns, turn)
		if repaired {
			report.Repaired++
		}
	}

	report.Kept = len(turns)
	return turns, report, nil
}

// parseTimestamp accepts an RFC 3339 string or Unix milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil || t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	}

	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, false
	}
	n, err := ms.Int64()
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(n).UTC(), true
}
