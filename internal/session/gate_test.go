// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"testing"
)

// =============================================================================
// GATE CREATION TESTS
// =============================================================================

func TestNewGate_StartsLocked(t *testing.T) {
	g := NewGate(nil)
	if g.State() != Locked {
		t.Errorf("State() = %v, want locked", g.State())
	}
	if g.IsUnlocked() {
		t.Error("new gate should not be unlocked")
	}
	if g.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", g.LastError())
	}
	if !g.UnlockedSince().IsZero() {
		t.Error("UnlockedSince should be zero while locked")
	}
}

func TestNewGate_DefaultSecrets(t *testing.T) {
	for _, secret := range []string{"rkai", "1234"} {
		g := NewGate([]string{"", ""})
		if err := g.AttemptUnlock(secret); err != nil {
			t.Errorf("AttemptUnlock(%q) = %v, want nil", secret, err)
		}
	}
}

// =============================================================================
// TRANSITION TESTS
// =============================================================================

func TestAttemptUnlock(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		wantOK    bool
	}{
		{"primary secret", "rkai", true},
		{"secondary secret", "1234", true},
		{"wrong", "hunter2", false},
		{"empty", "", false},
		{"case differs", "RKAI", false},
		{"whitespace", " rkai", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(DefaultSecrets)
			err := g.AttemptUnlock(tt.candidate)

			if tt.wantOK {
				if err != nil {
					t.Fatalf("AttemptUnlock failed: %v", err)
				}
				if !g.IsUnlocked() || g.LastError() != nil {
					t.Error("gate should be unlocked with no error")
				}
				return
			}

			var ice *InvalidCredentialError
			if !errors.As(err, &ice) {
				t.Fatalf("error = %v, want *InvalidCredentialError", err)
			}
			if g.IsUnlocked() {
				t.Error("gate should stay locked")
			}
			if g.LastError() == nil {
				t.Error("LastError should be recorded")
			}
		})
	}
}

func TestAttemptUnlock_ErrorMessage(t *testing.T) {
	g := NewGate(DefaultSecrets)
	err := g.AttemptUnlock("nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), `Invalid password. Try "rkai"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAttemptUnlock_ClearsErrorOnSuccess(t *testing.T) {
	g := NewGate(DefaultSecrets)
	_ = g.AttemptUnlock("wrong")
	if err := g.AttemptUnlock("rkai"); err != nil {
		t.Fatalf("AttemptUnlock failed: %v", err)
	}
	if g.LastError() != nil {
		t.Errorf("LastError() = %v, want nil after success", g.LastError())
	}
	if g.UnlockedSince().IsZero() {
		t.Error("UnlockedSince should be set")
	}
}

func TestLock(t *testing.T) {
	g := NewGate(DefaultSecrets)
	if err := g.AttemptUnlock("1234"); err != nil {
		t.Fatalf("AttemptUnlock failed: %v", err)
	}
	g.Lock()
	if g.IsUnlocked() {
		t.Error("gate should be locked after Lock")
	}
	// Lock on a locked gate is a no-op.
	g.Lock()
	if g.State() != Locked {
		t.Error("gate should remain locked")
	}
}

func TestState_String(t *testing.T) {
	if Locked.String() != "locked" || Unlocked.String() != "unlocked" {
		t.Errorf("unexpected state names: %s %s", Locked, Unlocked)
	}
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestGate_Concurrent(t *testing.T) {
	g := NewGate(DefaultSecrets)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); _ = g.AttemptUnlock("rkai") }()
		go func() { defer wg.Done(); _ = g.AttemptUnlock("bad") }()
		go func() { defer wg.Done(); g.Lock() }()
	}
	wg.Wait()
	_ = g.State()
}
