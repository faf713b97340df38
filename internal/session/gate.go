// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSecrets is the allow-list used when none is configured.
var DefaultSecrets = []string{"rkai", "1234"}

// =============================================================================
// STATE
// =============================================================================

// State is the gate state.
type State int

const (
	Locked State = iota
	Unlocked
)

// String returns the state name.
func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// =============================================================================
// ERRORS
// =============================================================================

// InvalidCredentialError is returned when a candidate passphrase does not
// match. Its message is meant to be shown to the user as-is.
type InvalidCredentialError struct {
	Hint string
}

// Error implements the error interface.
func (e *InvalidCredentialError) Error() string {
	if e.Hint == "" {
		return "Invalid password."
	}
	return fmt.Sprintf("Invalid password. Try %q", e.Hint)
}

// =============================================================================
// GATE
// =============================================================================

// Gate holds the locked/unlocked state. It starts locked on every process
// start and is safe for concurrent use.
type Gate struct {
	mu         sync.Mutex
	secrets    []string
	state      State
	lastErr    error
	unlockedAt time.Time
}

// NewGate creates a locked gate accepting any of secrets. Empty entries are
// ignored; if nothing remains DefaultSecrets is used.
func NewGate(secrets []string) *Gate {
	var list []string
	for _, s := range secrets {
		if s != "" {
			list = append(list, s)
		}
	}
	if len(list) == 0 {
		list = append(list, DefaultSecrets...)
	}
	return &Gate{secrets: list, state: Locked}
}

// AttemptUnlock unlocks the gate if candidate exactly matches an allowed
// secret. On mismatch the gate stays locked and an *InvalidCredentialError
// is recorded and returned. Unlocking an already unlocked gate succeeds.
func (g *Gate) AttemptUnlock(candidate string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range g.secrets {
		if candidate == s {
			if g.state != Unlocked {
				g.unlockedAt = time.Now()
			}
			g.state = Unlocked
			g.lastErr = nil
			return nil
		}
	}

	err := &InvalidCredentialError{Hint: g.secrets[0]}
	if g.state != Unlocked {
		g.lastErr = err
	}
	return err
}

// Lock returns the gate to the locked state. Always succeeds.
func (g *Gate) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Locked
	g.lastErr = nil
	g.unlockedAt = time.Time{}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsUnlocked reports whether the gate is unlocked.
func (g *Gate) IsUnlocked() bool {
	return g.State() == Unlocked
}

// LastError returns the error from the most recent failed attempt, or nil.
func (g *Gate) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// UnlockedSince returns when the gate was last unlocked (zero while locked).
func (g *Gate) UnlockedSince() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlockedAt
}
