// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/commands"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/ui/styles"
)

// =============================================================================
// SCREENS
// =============================================================================

// Screen is the top-level view being shown.
type Screen int

const (
	ScreenLogin Screen = iota // Passphrase prompt
	ScreenChat                // Conversation
)

// Options configures the chat view.
type Options struct {
	RenderMarkdown bool
	ShowWelcome    bool
	ConfirmClear   bool
	Theme          string
	Compact        bool
	Version        string
	Logger         zerolog.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		RenderMarkdown: true,
		ShowWelcome:    true,
		ConfirmClear:   true,
		Theme:          "auto",
		Logger:         zerolog.Nop(),
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the whole application view.
type Model struct {
	ctx  context.Context
	opts Options

	app       *app.App
	registry  *commands.Registry
	env       *commands.Context
	completer *commands.Completer

	// Styling
	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	markdown *markdownCache

	// Dimensions
	width  int
	height int

	screen   Screen
	password textinput.Model
	loginErr string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// waiting is the input of the request in flight
	waiting string

	// notice is a one-line message under the transcript
	notice    string
	noticeErr bool

	// confirm holds a command waiting for y/n
	confirm string

	completion      *commands.CompletionState
	completionLines []string
	starterIndex    int

	quitting bool
}

// New creates the chat model. It starts on the login screen unless the
// application is already unlocked.
func New(ctx context.Context, a *app.App, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	theme := styles.NewTheme(opts.Theme)
	registry := commands.NewRegistry()

	pw := textinput.New()
	pw.Placeholder = app.PasswordHint
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.Prompt = ""
	pw.CharLimit = 128
	pw.Width = 32
	pw.Focus()

	in := textinput.New()
	in.Prompt = theme.InputPrompt.Render("> ")
	in.Placeholder = app.Placeholder(conversation.Standard)
	in.CharLimit = 8000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	h := help.New()
	h.ShortSeparator = "  "

	m := Model{
		ctx:        ctx,
		opts:       opts,
		app:        a,
		registry:   registry,
		env:        commands.NewContext(a),
		completer:  commands.NewCompleter(registry),
		theme:      theme,
		keys:       DefaultKeyMap(),
		help:       h,
		markdown:   newMarkdownCache(theme.IsDark),
		screen:     ScreenLogin,
		password:   pw,
		input:      in,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		completion: commands.NewCompletionState(),
	}
	if a.IsUnlocked() {
		m.enterChat()
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Env exposes the command context so callers can replace the platform
// hand-off functions.
func (m Model) Env() *commands.Context {
	return m.env
}

// Screen returns the screen being shown.
func (m Model) Screen() Screen {
	return m.screen
}

// controller returns the conversation controller, or nil while locked.
func (m Model) controller() *conversation.Controller {
	ctrl, err := m.app.Conversation()
	if err != nil {
		return nil
	}
	return ctrl
}

func (m *Model) enterChat() {
	m.screen = ScreenChat
	m.loginErr = ""
	m.password.Reset()
	m.password.Blur()
	m.input.Focus()
	if ctrl := m.controller(); ctrl != nil {
		m.input.Placeholder = app.Placeholder(ctrl.Tier())
		// A draft typed before locking is restored.
		if d := ctrl.Draft(); d != "" && m.input.Value() == "" {
			m.input.SetValue(d)
		}
	}
	if report := m.app.LoadReport(); report.Corrupt() {
		m.setNotice("Stored history could not be read; starting fresh.", true)
	}
	m.refresh()
}

func (m *Model) enterLogin() {
	if ctrl := m.controller(); ctrl != nil {
		ctrl.SetDraft(m.input.Value())
	}
	m.app.Lock()
	m.screen = ScreenLogin
	m.input.Blur()
	m.input.Reset()
	m.password.Reset()
	m.password.Focus()
	m.clearCompletion()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) clearCompletion() {
	m.completion.Clear()
	m.completionLines = nil
}
