// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/storage"
)

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{":help", true},
		{":export mail", true},
		{"  :help", true},
		{":?", true},
		{"hello", false},
		{"hello :help", false},
		{"/image a cat", false},
		{":)", false},
		{":", false},
		{"", false},
	}

	for _, tc := range tests {
		got := IsCommand(tc.input)
		if got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestExtractCommandName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{":help", ":help"},
		{":export mail", ":export"},
		{"  :clear  ", ":clear"},
		{"hello", ""},
	}

	for _, tc := range tests {
		got := ExtractCommandName(tc.input)
		if got != tc.want {
			t.Errorf("ExtractCommandName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(NewRegistry())

	res := p.Parse(`:save-image "my pics/cat.png"`)
	require.True(t, res.IsCommand)
	require.NotNil(t, res.Command)
	assert.Equal(t, ":save-image", res.Command.Name)
	assert.Equal(t, []string{"my pics/cat.png"}, res.Args)
	assert.Equal(t, `"my pics/cat.png"`, res.RawArgs)

	res = p.Parse(":Q")
	require.NotNil(t, res.Command)
	assert.Equal(t, ":quit", res.Command.Name)

	res = p.Parse(":nope")
	assert.True(t, res.IsCommand)
	assert.Nil(t, res.Command)

	res = p.Parse("hello there")
	assert.False(t, res.IsCommand)
}

func TestParser_ParseQuotedArgs(t *testing.T) {
	p := NewParser(NewRegistry())

	tests := []struct {
		input string
		want  []string
	}{
		{":help a b", []string{"a", "b"}},
		{`:help "a b" c`, []string{"a b", "c"}},
		{`:help 'it\'s' x`, []string{"it's", "x"}},
		{":help", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, p.Parse(tc.input).Args, tc.input)
	}
}

func TestGetPartialCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{":", ":"},
		{":sa", ":sa"},
		{":export ", ""},
		{":export mail", ""},
		{"hello", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, GetPartialCommand(tc.input), tc.input)
	}
}

func TestGetPartialArg(t *testing.T) {
	tests := []struct {
		input     string
		wantIndex int
		wantText  string
	}{
		{":export", 0, ""},
		{":export ", 0, ""},
		{":export cl", 0, "cl"},
		{":save-image a ", 1, ""},
		{":save-image a b", 1, "b"},
	}
	for _, tc := range tests {
		idx, text := GetPartialArg(tc.input)
		assert.Equal(t, tc.wantIndex, idx, tc.input)
		assert.Equal(t, tc.wantText, text, tc.input)
	}
}

func TestValidateArgs(t *testing.T) {
	reg := NewRegistry()
	cmd := reg.Get(":export")

	assert.NoError(t, ValidateArgs(cmd, nil))
	assert.NoError(t, ValidateArgs(cmd, []string{"MAIL"}))

	err := ValidateArgs(cmd, []string{"fax"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "fax", verr.Got)
	assert.Contains(t, err.Error(), "mail, clip, file")
}

// =============================================================================
// EXECUTION TESTS
// =============================================================================

type stubGateway struct{}

func (stubGateway) CompleteText(ctx context.Context, prompt string, history []model.Turn) (string, error) {
	return "reply to " + prompt, nil
}

func (stubGateway) CompleteImage(ctx context.Context, prompt string) (string, error) {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("PNGDATA")), nil
}

type harness struct {
	reg    *Registry
	env    *Context
	opened []string
	copied []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	cfg.Export.ImageDir = t.TempDir()

	a, err := app.New(context.Background(), cfg, zerolog.Nop(),
		app.WithGateway(stubGateway{}),
		app.WithSlot(storage.NewMemorySlot()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	h := &harness{reg: NewRegistry()}
	h.env = NewContext(a)
	h.env.Open = func(uri string) error {
		h.opened = append(h.opened, uri)
		return nil
	}
	h.env.Copy = func(text string) error {
		h.copied = append(h.copied, text)
		return nil
	}
	return h
}

func (h *harness) run(t *testing.T, input string) (Outcome, error) {
	t.Helper()
	return h.reg.Execute(context.Background(), h.env, input)
}

func (h *harness) unlockAndChat(t *testing.T, inputs ...string) *conversation.Controller {
	t.Helper()
	require.NoError(t, h.env.App.Unlock("rkai"))
	ctrl, err := h.env.App.Conversation()
	require.NoError(t, err)
	for _, in := range inputs {
		_, err := ctrl.Submit(context.Background(), in)
		require.NoError(t, err)
	}
	return ctrl
}

func TestExecute_LockedCommands(t *testing.T) {
	h := newHarness(t)

	for _, input := range []string{":pro", ":clear", ":export", ":history", ":save-image", ":status"} {
		_, err := h.run(t, input)
		assert.ErrorIs(t, err, app.ErrLocked, input)
	}

	out, err := h.run(t, ":help")
	require.NoError(t, err)
	assert.Contains(t, out.Message, ":export [mail|clip|file]")

	out, err = h.run(t, ":quit")
	require.NoError(t, err)
	assert.True(t, out.Quit)
}

func TestExecute_Unknown(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, ":frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = h.run(t, "plain chat")
	assert.Error(t, err)
}

func TestExecute_HelpForCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, ":help quit")
	require.NoError(t, err)
	assert.Contains(t, out.Message, ":q, :exit")

	_, err = h.run(t, ":help nothing")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExecute_Tier(t *testing.T) {
	h := newHarness(t)
	ctrl := h.unlockAndChat(t)

	_, err := h.run(t, ":pro")
	require.NoError(t, err)
	assert.Equal(t, conversation.Elevated, ctrl.Tier())

	_, err = h.run(t, ":standard")
	require.NoError(t, err)
	assert.Equal(t, conversation.Standard, ctrl.Tier())
}

func TestExecute_Clear(t *testing.T) {
	h := newHarness(t)
	h.unlockAndChat(t, "one", "two")
	require.Equal(t, 4, h.env.App.Store.Len())

	out, err := h.run(t, ":clear")
	require.NoError(t, err)
	assert.True(t, out.Refresh)
	assert.Equal(t, 0, h.env.App.Store.Len())
	assert.NotEmpty(t, h.reg.Get(":clear").Confirm)
}

func TestExecute_History(t *testing.T) {
	h := newHarness(t)
	h.unlockAndChat(t)

	out, err := h.run(t, ":history")
	require.NoError(t, err)
	assert.Equal(t, "No messages yet.", out.Message)

	h.unlockAndChat(t, "first", "second")

	out, err = h.run(t, ":history 2")
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Last 2 of 4 messages")
	assert.Contains(t, out.Message, "You: second")
	assert.Contains(t, out.Message, "RK AI: reply to second")
	assert.NotContains(t, out.Message, "first")

	_, err = h.run(t, ":history zero")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestExecute_ExportTargets(t *testing.T) {
	h := newHarness(t)
	h.unlockAndChat(t)

	out, err := h.run(t, ":export")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to export yet.", out.Message)
	assert.Empty(t, h.opened)

	h.unlockAndChat(t, "hello world")

	_, err = h.run(t, ":export")
	require.NoError(t, err)
	require.Len(t, h.opened, 1)
	assert.True(t, strings.HasPrefix(h.opened[0], "mailto:?subject=RK%20AI%20Chat%20History&body="))

	_, err = h.run(t, ":export clip")
	require.NoError(t, err)
	require.Len(t, h.copied, 1)
	assert.Contains(t, h.copied[0], "USER: hello world")
	assert.Contains(t, h.copied[0], "MODEL: reply to hello world")

	out, err = h.run(t, ":export file")
	require.NoError(t, err)
	path := strings.TrimPrefix(out.Message, "Exported to ")
	assert.Equal(t, ".txt", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USER: hello world")
}

func TestExecute_ExportOpenFailure(t *testing.T) {
	h := newHarness(t)
	h.unlockAndChat(t, "hi")
	h.env.Open = func(string) error { return errors.New("no opener") }

	_, err := h.run(t, ":export mail")
	assert.ErrorContains(t, err, "no opener")
}

func TestExecute_SaveImage(t *testing.T) {
	h := newHarness(t)
	ctrl := h.unlockAndChat(t, "text only")

	_, err := h.run(t, ":save-image")
	assert.ErrorIs(t, err, ErrNoImage)

	ctrl.SetTier(true)
	_, err = ctrl.Submit(context.Background(), "/image a cat")
	require.NoError(t, err)

	out, err := h.run(t, ":save-image")
	require.NoError(t, err)
	path := strings.TrimPrefix(out.Message, "Image saved to ")
	assert.Equal(t, "rk-ai-image.png", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))

	custom := filepath.Join(t.TempDir(), "cat.png")
	_, err = h.run(t, ":save-image "+custom)
	require.NoError(t, err)
	_, err = os.Stat(custom)
	assert.NoError(t, err)
}

func TestHandleSaveImage_Locked(t *testing.T) {
	h := newHarness(t)
	ctrl := h.unlockAndChat(t)
	ctrl.SetTier(true)
	_, err := ctrl.Submit(context.Background(), "/image a cat")
	require.NoError(t, err)

	h.env.App.Lock()

	// Called directly, past the registry's unlock check.
	_, err = handleSaveImage(context.Background(), h.env, []string{filepath.Join(t.TempDir(), "cat.png")})
	assert.ErrorIs(t, err, app.ErrLocked)

	_, _, err = h.env.App.LastImage()
	assert.ErrorIs(t, err, app.ErrLocked)
}

func TestHandleExport_UnknownTarget(t *testing.T) {
	h := newHarness(t)
	h.unlockAndChat(t, "hi")

	_, err := handleExport(context.Background(), h.env, []string{"fax"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "fax", verr.Got)
	assert.Contains(t, err.Error(), "mail, clip, file")
	assert.Empty(t, h.opened)
	assert.Empty(t, h.copied)

	_, err = h.run(t, ":export fax")
	assert.True(t, errors.As(err, &verr))
	assert.Empty(t, h.opened)

	_, err = handleExport(context.Background(), h.env, []string{"MAIL"})
	require.NoError(t, err)
	assert.Len(t, h.opened, 1)
}

func TestExecute_StatusAndLock(t *testing.T) {
	h := newHarness(t)
	h.unlockAndChat(t)

	out, err := h.run(t, ":status")
	require.NoError(t, err)
	assert.Contains(t, out.Message, "Tier:     Standard")
	assert.Contains(t, out.Message, "Storage:  memory")
	assert.Contains(t, out.Message, "Session:  unlocked at ")
	assert.Contains(t, out.Message, ":pro")

	out, err = h.run(t, ":lock")
	require.NoError(t, err)
	assert.True(t, out.Locked)
	assert.False(t, h.env.App.IsUnlocked())
}
