// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types produced by background
// work: submissions to the conversation controller and local commands.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rkai/internal/commands"
	"github.com/jeranaias/rkai/internal/conversation"
)

// submitDoneMsg carries the outcome of a Submit call.
type submitDoneMsg struct {
	result conversation.Result
	err    error
}

// commandDoneMsg carries the outcome of a local command.
type commandDoneMsg struct {
	input   string
	outcome commands.Outcome
	err     error
}

// submitCmd runs a submission off the update loop.
func submitCmd(ctx context.Context, ctrl *conversation.Controller, input string) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Submit(ctx, input)
		return submitDoneMsg{result: res, err: err}
	}
}

// commandCmd runs a local command off the update loop; some commands open
// external programs or write files.
func commandCmd(ctx context.Context, reg *commands.Registry, env *commands.Context, input string) tea.Cmd {
	return func() tea.Msg {
		out, err := reg.Execute(ctx, env, input)
		return commandDoneMsg{input: input, outcome: out, err: err}
	}
}
