// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by the rkai front ends.
//
// The TUI owns the terminal, so logs go to ~/.rkai/rkai.log unless console
// output is requested.
package logging
