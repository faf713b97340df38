// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/commands"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/gateway"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.screen == ScreenLogin {
			return m.handleLoginKey(msg)
		}
		return m.handleChatKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.waiting == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case submitDoneMsg:
		return m.handleSubmitDone(msg)

	case commandDoneMsg:
		return m.handleCommandDone(msg)
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.help.Width = m.width

	// Layout: header + viewport + notice + input box + footer
	const (
		headerHeight = 2
		noticeHeight = 1
		inputHeight  = 3
		footerHeight = 1
	)
	vpHeight := m.height - headerHeight - noticeHeight - inputHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = vpHeight

	// Input box border and padding take four columns, the prompt two.
	m.input.Width = max(m.width-8, 10)

	m.refresh()
	return m, nil
}

// =============================================================================
// LOGIN
// =============================================================================

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.password, cmd = m.password.Update(msg)
		return m, cmd
	}

	if err := m.app.Unlock(m.password.Value()); err != nil {
		m.loginErr = err.Error()
		m.password.Reset()
		return m, nil
	}
	m.enterChat()
	return m, textinput.Blink
}

// =============================================================================
// CHAT
// =============================================================================

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != "" {
		return m.handleConfirmKey(msg)
	}

	if key.Matches(msg, m.keys.Complete) {
		return m.handleTab()
	}
	if key.Matches(msg, m.keys.CompleteBack) {
		return m.handleTabBack()
	}
	m.clearCompletion()

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value())
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keys.ToggleTier):
		if ctrl := m.controller(); ctrl != nil {
			if ctrl.Tier() == conversation.Elevated {
				return m.runCommand(":standard")
			}
			return m.runCommand(":pro")
		}
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		return m.runCommand(":clear")
	case key.Matches(msg, m.keys.Export):
		return m.runCommand(":export mail")
	case key.Matches(msg, m.keys.SaveImage):
		return m.runCommand(":save-image")
	case key.Matches(msg, m.keys.Lock):
		m.enterLogin()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit routes input to a local command or the conversation controller.
func (m Model) submit(raw string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(raw) == "" {
		return m, nil
	}
	if commands.IsCommand(raw) {
		m.input.Reset()
		return m.runCommand(raw)
	}

	ctrl := m.controller()
	if ctrl == nil {
		m.enterLogin()
		return m, nil
	}
	// One request at a time; the input keeps its text until the current
	// request finishes.
	if m.waiting != "" || ctrl.Busy() {
		return m, nil
	}

	m.input.Reset()
	m.setNotice("", false)
	m.starterIndex = 0
	m.waiting = raw
	m.refresh()
	m.viewport.GotoBottom()
	return m, tea.Batch(submitCmd(m.ctx, ctrl, raw), m.spinner.Tick)
}

// runCommand executes a local command, asking first when it needs
// confirmation.
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	parsed := commands.NewParser(m.registry).Parse(input)
	if parsed.Command != nil && parsed.Command.Confirm != "" && m.opts.ConfirmClear {
		m.confirm = input
		m.setNotice(parsed.Command.Confirm+" (y/n)", false)
		return m, nil
	}
	return m, commandCmd(m.ctx, m.registry, m.env, input)
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	input := m.confirm
	m.confirm = ""
	if s := strings.ToLower(msg.String()); s == "y" || s == "enter" {
		m.setNotice("", false)
		return m, commandCmd(m.ctx, m.registry, m.env, input)
	}
	m.setNotice("Cancelled.", false)
	return m, nil
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	res, err := msg.result, msg.err
	m.waiting = ""

	// A save failure can come with a gated or failed request; both are shown.
	var problems []string
	if err != nil {
		problems = append(problems, errorText(err))
	}
	if res.PersistErr != nil {
		problems = append(problems, "History could not be saved: "+res.PersistErr.Error())
	}
	switch {
	case len(problems) > 0:
		m.setNotice(strings.Join(problems, "  "), true)
	case res.Reply != nil && res.Reply.IsImage():
		m.setNotice("Image ready. Ctrl+S or :save-image to save it.", false)
	}
	if err != nil {
		m.opts.Logger.Debug().Err(err).Msg("Submission failed")
	}

	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleCommandDone(msg commandDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, app.ErrLocked) {
			m.enterLogin()
			return m, nil
		}
		m.setNotice(msg.err.Error(), true)
		return m, nil
	}

	out := msg.outcome
	if out.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	if out.Locked {
		m.enterLogin()
		return m, nil
	}

	m.setNotice(out.Message, false)
	if ctrl := m.controller(); ctrl != nil {
		m.input.Placeholder = app.Placeholder(ctrl.Tier())
	}
	m.refresh()
	if out.Refresh {
		m.viewport.GotoBottom()
	}
	return m, nil
}

// errorText returns the message shown for a failed submission.
func errorText(err error) string {
	var genErr *gateway.GenerationError
	if errors.As(err, &genErr) {
		return "Error: " + genErr.Message()
	}
	return err.Error()
}
