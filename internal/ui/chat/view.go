// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.screen == ScreenLogin {
		return m.renderLogin()
	}
	return m.renderChat()
}

func (m Model) renderLogin() string {
	t := m.theme

	lines := []string{
		t.LoginTitle.Render(app.Name),
		t.HeaderSubtitle.Render(app.Tagline),
		"",
		m.password.View(),
	}
	if m.loginErr != "" {
		lines = append(lines, "", t.LoginError.Render(m.loginErr))
	}
	lines = append(lines, "", t.Muted.Render(app.Footer))

	box := t.LoginBox.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderChat() string {
	header := m.renderHeader()
	notice := m.renderNotice()
	input := m.renderInputWithCompletion()
	footer := m.renderFooter()

	// The footer grows when full help is shown.
	vp := m.viewport
	if m.height > 0 {
		used := lipgloss.Height(header) + lipgloss.Height(notice) + lipgloss.Height(input) + lipgloss.Height(footer)
		vp.Height = max(m.height-used, 3)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, vp.View(), notice, input, footer)
}

// =============================================================================
// HEADER AND FOOTER
// =============================================================================

func (m Model) renderHeader() string {
	t := m.theme
	left := t.HeaderTitle.Render(app.Name) + "  " + t.HeaderSubtitle.Render(app.Tagline)

	right := t.UpgradeButton.Render(app.UpgradeLabel)
	if ctrl := m.controller(); ctrl != nil && ctrl.Tier() == conversation.Elevated {
		right = t.ProBadge.Render(app.ProLabel)
	}

	width := max(m.width, 40)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	bar := t.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
	rule := t.Muted.Render(strings.Repeat("─", width))
	return bar + "\n" + rule
}

func (m Model) renderFooter() string {
	helpView := m.help.View(m.keys)
	if m.help.ShowAll {
		return helpView
	}
	brand := m.theme.Muted.Render(app.Footer)
	gap := m.width - lipgloss.Width(helpView) - lipgloss.Width(brand)
	if gap < 2 {
		return helpView
	}
	return helpView + strings.Repeat(" ", gap) + brand
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	// Multi-line output is shown in full below the transcript.
	text := m.notice
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " …"
	}
	if m.noticeErr {
		return m.theme.ErrorBanner.Render(text)
	}
	return m.theme.Notice.Render(text)
}

func (m Model) renderInput() string {
	width := max(m.width-2, 20)
	return m.theme.InputContainer.Width(width).Render(m.input.View())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderTranscript() string {
	ctrl := m.controller()
	if ctrl == nil {
		return ""
	}
	turns := ctrl.Transcript()

	var sections []string
	if len(turns) == 0 && m.waiting == "" && m.opts.ShowWelcome {
		sections = append(sections, m.renderWelcome())
	}
	for _, turn := range turns {
		sections = append(sections, m.renderTurn(turn))
	}
	if m.waiting != "" {
		sections = append(sections, m.renderPending())
	}
	// Multi-line command output is shown in full after the transcript.
	if strings.Contains(m.notice, "\n") {
		sections = append(sections, m.theme.Notice.Render(m.notice))
	}

	sep := "\n\n"
	if m.opts.Compact {
		sep = "\n"
	}
	return strings.Join(sections, sep)
}

func (m Model) renderWelcome() string {
	t := m.theme
	cards := make([]string, 0, len(app.Starters))
	for i, s := range app.Starters {
		body := t.StarterTitle.Render(s.Title) + "\n" + t.StarterHint.Render(s.Hint)
		if i > 0 {
			cards = append(cards, "  ")
		}
		cards = append(cards, t.StarterCard.Render(body))
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	if t.GetLayoutMode() == styles.LayoutNarrow {
		row = lipgloss.JoinVertical(lipgloss.Left, cards...)
	}

	block := lipgloss.JoinVertical(lipgloss.Center,
		"",
		t.WelcomeTitle.Render(app.WelcomeTitle),
		t.WelcomeText.Render(app.WelcomeMessage),
		"",
		row,
		"",
		t.Muted.Render("Tab fills a starter prompt. Type :help for commands."),
	)
	if m.viewport.Width <= 0 {
		return block
	}
	return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Center, block)
}

func (m Model) renderTurn(turn model.Turn) string {
	t := m.theme
	width := t.BubbleWidth()
	label := t.RoleLabel.Render(turn.Role.DisplayName()) + " " +
		t.Timestamp.Render(turn.Timestamp.Local().Format("15:04"))

	var body string
	switch {
	case turn.IsImage():
		body = t.ImageCard.Render(fmt.Sprintf("%s\n%s", model.ImagePlaceholder,
			t.Muted.Render(fmt.Sprintf("%d KB · Ctrl+S to save", len(turn.Content)*3/4/1024))))
	case turn.Role == model.RoleUser:
		body = m.bubble(t.UserBubble, turn.Content, width)
	default:
		content := turn.Content
		if m.opts.RenderMarkdown {
			content = m.markdown.Render(content, width-4)
		}
		body = m.bubble(t.ModelBubble, content, width)
	}

	block := lipgloss.JoinVertical(lipgloss.Left, label, body)
	if turn.Role == model.RoleUser && m.viewport.Width > 0 {
		block = lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right,
			lipgloss.JoinVertical(lipgloss.Right, label, body))
	}
	return block
}

// bubble wraps content in style, or leaves it bare in compact mode.
func (m Model) bubble(style lipgloss.Style, content string, width int) string {
	if m.opts.Compact {
		return content
	}
	if lipgloss.Width(content)+4 > width {
		style = style.Width(width - 2)
	}
	return style.Render(content)
}

func (m Model) renderPending() string {
	label := "RK AI is thinking…"
	if conversation.Classify(m.waiting).IsImage() {
		label = "Generating image…"
	}
	return m.theme.PendingBubble.Render(m.spinner.View() + " " + label)
}
