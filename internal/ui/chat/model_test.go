// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/gateway"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type stubGateway struct {
	err   error
	calls []string
}

func (g *stubGateway) CompleteText(ctx context.Context, prompt string, history []model.Turn) (string, error) {
	g.calls = append(g.calls, "text:"+prompt)
	if g.err != nil {
		return "", g.err
	}
	return "reply to " + prompt, nil
}

func (g *stubGateway) CompleteImage(ctx context.Context, prompt string) (string, error) {
	g.calls = append(g.calls, "image:"+prompt)
	return "data:image/png;base64,iVBORw0KGgo=", nil
}

// readOnlySlot loads as empty and refuses every write.
type readOnlySlot struct{}

func (readOnlySlot) Read(context.Context) ([]byte, error) { return nil, storage.ErrSlotNotFound }
func (readOnlySlot) Write(context.Context, []byte) error { return errors.New("disk full") }
func (readOnlySlot) Close() error { return nil }
func (readOnlySlot) Name() string { return "read-only" }

func newTestModel(t *testing.T, gw *stubGateway) (Model, *app.App) {
	t.Helper()
	return newTestModelWithSlot(t, gw, storage.NewMemorySlot())
}

func newTestModelWithSlot(t *testing.T, gw *stubGateway, slot storage.Slot) (Model, *app.App) {
	t.Helper()
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	cfg.Export.ImageDir = t.TempDir()

	a, err := app.New(context.Background(), cfg, zerolog.Nop(),
		app.WithGateway(gw),
		app.WithSlot(slot))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	opts := DefaultOptions()
	opts.RenderMarkdown = false
	m := New(context.Background(), a, opts)
	m.Env().Open = func(string) error { return nil }
	m.Env().Copy = func(string) error { return nil }

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), a
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

// settle runs cmd and feeds submission and command results back into the
// model. Timer-driven messages are not followed.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case submitDoneMsg, commandDoneMsg:
			next, more := m.Update(msg)
			m = next.(Model)
			queue = append(queue, more)
		case tea.QuitMsg:
			return m
		}
	}
	return m
}

func unlocked(t *testing.T, gw *stubGateway) (Model, *app.App) {
	t.Helper()
	m, a := newTestModel(t, gw)
	m = typeText(m, "rkai")
	m, _ = press(m, tea.KeyEnter)
	require.Equal(t, ScreenChat, m.Screen())
	return m, a
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_WrongThenRight(t *testing.T) {
	m, a := newTestModel(t, &stubGateway{})
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Contains(t, m.View(), app.Name)

	m = typeText(m, "nope")
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.Contains(t, m.View(), "Invalid password")
	assert.False(t, a.IsUnlocked())

	m = typeText(m, "1234")
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, ScreenChat, m.Screen())
	assert.True(t, a.IsUnlocked())
}

func TestLogin_PasswordIsMasked(t *testing.T) {
	m, _ := newTestModel(t, &stubGateway{})
	m = typeText(m, "secretword")
	assert.NotContains(t, m.View(), "secretword")
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_WelcomeOnEmptyTranscript(t *testing.T) {
	m, _ := unlocked(t, &stubGateway{})

	view := m.View()
	assert.Contains(t, view, app.WelcomeTitle)
	for _, s := range app.Starters {
		assert.Contains(t, view, s.Title)
	}
	assert.Contains(t, view, app.UpgradeLabel)
}

func TestChat_TabFillsStarters(t *testing.T) {
	m, _ := unlocked(t, &stubGateway{})

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, app.Starters[0].Prompt, m.input.Value())
	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, app.Starters[1].Prompt, m.input.Value())
}

func TestChat_SubmitText(t *testing.T) {
	gw := &stubGateway{}
	m, a := unlocked(t, gw)

	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	assert.Equal(t, "", m.input.Value())
	assert.Equal(t, "hello", m.waiting)

	m = settle(t, m, cmd)
	assert.Equal(t, "", m.waiting)
	assert.Equal(t, []string{"text:hello"}, gw.calls)

	turns, err := a.Transcript()
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Contains(t, m.View(), "reply to hello")
}

func TestChat_BlankInputIgnored(t *testing.T) {
	gw := &stubGateway{}
	m, a := unlocked(t, gw)

	m = typeText(m, "   ")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Empty(t, m.waiting)

	turns, _ := a.Transcript()
	assert.Empty(t, turns)
}

func TestChat_SecondSubmitWhileWaitingIgnored(t *testing.T) {
	gw := &stubGateway{}
	m, _ := unlocked(t, gw)

	m = typeText(m, "first")
	m, first := press(m, tea.KeyEnter)
	m = typeText(m, "second")
	m, second := press(m, tea.KeyEnter)
	assert.Nil(t, second)
	assert.Equal(t, "second", m.input.Value())

	m = settle(t, m, first)
	assert.Equal(t, []string{"text:first"}, gw.calls)
}

func TestChat_ImageGatedThenAllowed(t *testing.T) {
	gw := &stubGateway{}
	m, a := unlocked(t, gw)

	m = typeText(m, "/image a cat")
	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "Pro feature")
	assert.Empty(t, gw.calls)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	m = settle(t, next.(Model), cmd)
	ctrl, err := a.Conversation()
	require.NoError(t, err)
	assert.Equal(t, conversation.Elevated, ctrl.Tier())
	assert.Contains(t, m.View(), app.ProLabel)

	m = typeText(m, "/image a cat")
	m, cmd = press(m, tea.KeyEnter)
	m = settle(t, m, cmd)
	assert.Equal(t, []string{"image:a cat"}, gw.calls)
	assert.Contains(t, m.View(), model.ImagePlaceholder)
}

func TestChat_GenerationErrorShown(t *testing.T) {
	gw := &stubGateway{err: &gateway.GenerationError{Op: "text", Reason: "quota exceeded", Err: errors.New("429")}}
	m, _ := unlocked(t, gw)

	m = typeText(m, "hi")
	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)
	assert.True(t, m.noticeErr)
	assert.Equal(t, "Error: quota exceeded", m.notice)
}

func TestChat_SaveFailureKeepsRequestError(t *testing.T) {
	tests := []struct {
		name  string
		gw    *stubGateway
		input string
		want  string
	}{
		{"gated image", &stubGateway{}, "/image a cat", "Pro feature"},
		{"generation failure", &stubGateway{err: &gateway.GenerationError{Op: "text", Reason: "quota exceeded", Err: errors.New("429")}}, "hi", "Error: quota exceeded"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestModelWithSlot(t, tc.gw, readOnlySlot{})
			m = typeText(m, "rkai")
			m, _ = press(m, tea.KeyEnter)
			require.Equal(t, ScreenChat, m.Screen())

			m = typeText(m, tc.input)
			m, cmd := press(m, tea.KeyEnter)
			m = settle(t, m, cmd)

			assert.True(t, m.noticeErr)
			assert.Contains(t, m.notice, tc.want)
			assert.Contains(t, m.notice, "History could not be saved")
		})
	}
}

func TestChat_ClearAsksFirst(t *testing.T) {
	m, a := unlocked(t, &stubGateway{})
	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	m = settle(t, m, cmd)

	m = typeText(m, ":clear")
	m, cmd = press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Contains(t, m.notice, "(y/n)")

	m, _ = press(m, tea.KeyEsc)
	assert.Equal(t, "Cancelled.", m.notice)
	turns, _ := a.Transcript()
	assert.Len(t, turns, 2)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Equal(t, ":clear", m.confirm)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = settle(t, m, cmd)

	turns, _ = a.Transcript()
	assert.Empty(t, turns)
	assert.Equal(t, "Chat history cleared.", m.notice)
	assert.Contains(t, m.View(), app.WelcomeTitle)
}

func TestChat_CommandCompletion(t *testing.T) {
	m, _ := unlocked(t, &stubGateway{})

	m = typeText(m, ":sa")
	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, ":save-image", m.input.Value())
}

func TestChat_CompletionStepsBack(t *testing.T) {
	m, _ := unlocked(t, &stubGateway{})

	m = typeText(m, ":s")
	m, _ = press(m, tea.KeyTab)
	require.True(t, m.completion.Visible)
	require.Greater(t, len(m.completionLines), 1)
	first := m.input.Value()

	m, _ = press(m, tea.KeyShiftTab)
	last := m.completionLines[len(m.completionLines)-1]
	assert.Equal(t, last, m.input.Value())
	assert.NotEqual(t, first, last)

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, first, m.input.Value())
}

func TestChat_LockReturnsToLogin(t *testing.T) {
	m, a := unlocked(t, &stubGateway{})

	m = typeText(m, "half-typed")
	m, _ = press(m, tea.KeyCtrlO)
	assert.Equal(t, ScreenLogin, m.Screen())
	assert.False(t, a.IsUnlocked())

	m = typeText(m, "rkai")
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, ScreenChat, m.Screen())
	assert.Equal(t, "half-typed", m.input.Value())
}

func TestChat_QuitCommand(t *testing.T) {
	m, _ := unlocked(t, &stubGateway{})

	m = typeText(m, ":quit")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	msg := cmd()
	next, quit := m.Update(msg)
	m = next.(Model)
	require.NotNil(t, quit)
	_, isQuit := quit().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.Equal(t, "", m.View())
}

func TestChat_HelpToggle(t *testing.T) {
	m, _ := unlocked(t, &stubGateway{})
	short := m.View()

	m, _ = press(m, tea.KeyF1)
	assert.True(t, m.help.ShowAll)
	assert.NotEqual(t, short, m.View())
	assert.True(t, strings.Contains(m.View(), "lock"))
}
