// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app assembles the rkai core from configuration: the session gate
// in front of a conversation controller, its transcript store and the
// completion gateway. Both front ends (the TUI and the chat REPL) drive an
// *App and never build these pieces themselves.
package app
