// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the rkai command line.
//
// The root command starts the TUI. Subcommands cover the line-oriented chat
// REPL and non-interactive access to the stored transcript and config.
//
// # Commands Overview
//
//   - rkai: Full-screen chat (TUI)
//   - rkai chat: Line-oriented chat with history and tab completion
//   - rkai export: Write, mail or copy the chat history digest
//   - rkai history list|clear: Inspect or clear the stored transcript
//   - rkai config show|path|init|get|set: Configuration management
//   - rkai version: Build information
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
//
// Errors are mapped to exit codes by GetExitCode.
package cli
