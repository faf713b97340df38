// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rkai/internal/app"
)

// =============================================================================
// TAB COMPLETION HANDLERS
// =============================================================================

// handleTab completes commands, or cycles starter prompts into an empty
// input on an empty transcript.
func (m Model) handleTab() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	if value == "" || m.isStarter(value) {
		if ctrl := m.controller(); ctrl != nil && len(ctrl.Transcript()) == 0 && len(app.Starters) > 0 {
			m.input.SetValue(app.Starters[m.starterIndex%len(app.Starters)].Prompt)
			m.input.CursorEnd()
			m.starterIndex++
		}
		return m, nil
	}

	if m.completion.Visible && len(m.completionLines) > 0 {
		m.completion.Next()
	} else {
		comps := m.completer.Complete(value)
		lines := m.completer.Lines(value)
		if len(comps) == 0 || len(lines) != len(comps) {
			return m, nil
		}
		m.completion.Update(comps)
		m.completionLines = lines
	}

	m.input.SetValue(m.completionLines[m.completion.Selected])
	m.input.CursorEnd()
	if len(m.completionLines) == 1 {
		m.clearCompletion()
	}
	return m, nil
}

// handleTabBack steps back through the visible completions.
func (m Model) handleTabBack() (tea.Model, tea.Cmd) {
	if !m.completion.Visible || len(m.completionLines) == 0 {
		return m, nil
	}
	m.completion.Prev()
	m.input.SetValue(m.completionLines[m.completion.Selected])
	m.input.CursorEnd()
	return m, nil
}

func (m Model) isStarter(value string) bool {
	for _, s := range app.Starters {
		if s.Prompt == value {
			return true
		}
	}
	return false
}
