// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rkai.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - ExpandHome: Resolves a leading "~" in configured paths
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Display-width truncation for terminal columns
//   - OneLine: Collapses whitespace runs for single-line previews
//
// # Usage
//
//	// Persist the transcript without risking a half-written file
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a preview into a terminal column
//	line := util.TruncateWidth(util.OneLine(text), 60)
package util
