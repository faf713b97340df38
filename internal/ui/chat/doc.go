// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat interface for rkai.

The package implements a Bubble Tea program with two screens: a passphrase
prompt and the conversation. All state changes go through the application
core (app.App, conversation.Controller); the view only renders what the core
reports.

# Key Components

## Model (model.go)

The Model struct holds the view state:
  - Login screen with a masked passphrase input
  - Conversation viewport, input line and spinner
  - Notice line for command output and errors
  - Pending confirmation and tab completion state

## Update Loop (update.go)

Handles key presses, window resizes and the results of background work.
Submissions and local commands run as tea.Cmd functions so the update loop
never blocks on the network, the clipboard or the mail composer.

## View Rendering (view.go)

  - Header with the Pro badge or the upgrade affordance
  - Welcome screen with starter prompts on an empty transcript
  - Message bubbles, markdown-rendered model replies and image cards
  - Footer with key help

# Usage

	err := chat.Run(ctx, application, chat.DefaultOptions())

# Keyboard Shortcuts

	Enter   Send the message or run a :command
	Tab     Complete a :command, or fill a starter prompt
	Ctrl+P  Toggle RK AI Pro
	Ctrl+L  Clear the chat history
	Ctrl+E  Email the chat history
	Ctrl+S  Save the latest generated image
	Ctrl+O  Lock
	F1      Show all keys
	Ctrl+C  Quit
*/
package chat
