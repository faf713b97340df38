// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// COMPLETION POPUP RENDERING
// =============================================================================

// maxVisibleCompletions caps the popup height.
const maxVisibleCompletions = 6

// renderCompletionPopup lists the candidates while Tab is cycling.
func (m Model) renderCompletionPopup() string {
	if m.completion == nil || !m.completion.Visible || len(m.completion.Completions) < 2 {
		return ""
	}

	comps := m.completion.Completions
	start := 0
	if m.completion.Selected >= maxVisibleCompletions {
		start = m.completion.Selected - maxVisibleCompletions + 1
	}
	end := min(start+maxVisibleCompletions, len(comps))

	selected := lipgloss.NewStyle().Bold(true).Foreground(m.theme.InputPrompt.GetForeground())
	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		c := comps[i]
		text := c.Display
		if text == "" {
			text = c.Value
		}
		row := "  " + text
		if i == m.completion.Selected {
			row = selected.Render("> " + text)
		}
		if c.Description != "" {
			row += "  " + m.theme.Muted.Render(c.Description)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// renderInputWithCompletion renders the input box with the popup above it.
func (m Model) renderInputWithCompletion() string {
	base := m.renderInput()
	popup := m.renderCompletionPopup()
	if popup == "" {
		return base
	}
	return lipgloss.JoinVertical(lipgloss.Left, popup, base)
}
