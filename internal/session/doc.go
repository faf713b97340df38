// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the passphrase gate in front of the conversation.
//
// The gate is a user-experience lock, not an authentication system: the
// passphrases come from configuration and are compared as plain strings.
// There is no hashing, rate limiting or lockout.
//
// # Key Types
//
//   - Gate: Locked/unlocked state machine with the last error message
//   - State: Locked or Unlocked
//   - InvalidCredentialError: Returned for a wrong passphrase
//
// # Usage
//
//	gate := session.NewGate([]string{"rkai", "1234"})
//	if err := gate.AttemptUnlock(input); err != nil {
//	    fmt.Println(err) // Invalid password. Try "rkai"
//	}
//	gate.Lock() // logout; the transcript on disk is untouched
package session
