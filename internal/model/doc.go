// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
//
// This package defines the core domain types shared by the transcript store,
// the conversation controller and the export adapter.
//
// # Key Types
//
//   - Turn: Single immutable message with role, kind, content and timestamp
//   - Role: Author of a turn (user, model)
//   - Kind: Payload kind of a turn (text, image)
//
// # Usage
//
// Create turns:
//
//	q := model.NewUserTurn("Write a haiku about Go")
//	a := model.NewModelTextTurn("Gophers dig deep...")
//	img := model.NewModelImageTurn("data:image/png;base64,...")
//
// Turns are values. Once appended to a transcript they are never mutated;
// the only way to remove them is a full transcript clear.
package model
