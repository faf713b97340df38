// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the local command system shared by the TUI and
// the chat REPL.
//
// Local commands start with ':' so they never shadow chat input; "/image"
// is chat input and goes to the conversation controller.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - Parser: Splits input into command name and arguments
//   - Outcome: What a front end should do after a command ran
//   - Completer: Tab completion for commands and arguments
//
// # Built-in Commands
//
//   - :help: Show available commands
//   - :pro / :standard: Switch the capability tier
//   - :clear: Clear the chat history
//   - :export: Hand the digest to mail, the clipboard or a file
//   - :history: List recent turns
//   - :save-image: Save the latest generated image
//   - :lock / :quit
//
// # Usage
//
//	reg := commands.NewRegistry()
//	if commands.IsCommand(input) {
//	    out, err := reg.Execute(ctx, env, input)
//	    ...
//	}
package commands
