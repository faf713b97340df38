// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rkai/internal/model"
)

func sampleTurns() []model.Turn {
	at := func(min int) time.Time { return time.Date(2025, 3, 14, 9, min, 30, 0, time.Local) }

	u := model.NewUserTurn("hello")
	u.Timestamp = at(5)
	m := model.NewModelTextTurn("Hi! How can I help?")
	m.Timestamp = at(6)
	img := model.NewModelImageTurn("data:image/png;base64,iVBORw==")
	img.Timestamp = at(7)
	return []model.Turn{u, m, img}
}

// =============================================================================
// DIGEST TESTS
// =============================================================================

func TestBuildDigest(t *testing.T) {
	want := "[2025-03-14 09:05] USER: hello\n\n" +
		"[2025-03-14 09:06] MODEL: Hi! How can I help?\n\n" +
		"[2025-03-14 09:07] MODEL: [Image Generated]"
	assert.Equal(t, want, BuildDigest(sampleTurns()))
}

func TestBuildDigest_Empty(t *testing.T) {
	assert.Equal(t, "", BuildDigest(nil))
}

func TestBuildDigest_UsesLocalTime(t *testing.T) {
	turn := model.NewUserTurn("utc")
	turn.Timestamp = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	want := "[" + turn.Timestamp.Local().Format(DigestTimeLayout) + "] USER: utc"
	assert.Equal(t, want, BuildDigest([]model.Turn{turn}))
}

// =============================================================================
// HAND-OFF TESTS
// =============================================================================

func TestMailtoURI(t *testing.T) {
	got := MailtoURI(DigestSubject, "[2025-03-14 09:05] USER: a&b=c?\n\nnaïve (ok)!")
	want := "mailto:?subject=RK%20AI%20Chat%20History" +
		"&body=%5B2025-03-14%2009%3A05%5D%20USER%3A%20a%26b%3Dc%3F%0A%0Ana%C3%AFve%20(ok)!"
	assert.Equal(t, want, got)
}

func TestEncodeURIComponent_Unreserved(t *testing.T) {
	s := "AZaz09-_.!~*'()"
	assert.Equal(t, s, encodeURIComponent(s))
	assert.Equal(t, "%2B%2F%20", encodeURIComponent("+/ "))
}

func TestOpenURI(t *testing.T) {
	var gotName string
	var gotArgs []string
	orig := startCommand
	startCommand = func(name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}
	defer func() { startCommand = orig }()

	uri := MailtoURI("s", "b")
	err := OpenURI(uri)

	switch runtime.GOOS {
	case "windows":
		require.NoError(t, err)
		assert.Equal(t, "rundll32", gotName)
	case "darwin":
		require.NoError(t, err)
		assert.Equal(t, "open", gotName)
	case "linux":
		require.NoError(t, err)
		assert.Equal(t, "xdg-open", gotName)
	default:
		return
	}
	require.NotEmpty(t, gotArgs)
	assert.Equal(t, uri, gotArgs[len(gotArgs)-1])
}

// =============================================================================
// FILE EXPORT TESTS
// =============================================================================

func TestExportToFile_Digest(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportToFile(sampleTurns(), DigestExporter{}, &Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "rk-ai-chat_"))
	assert.Equal(t, ".txt", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, BuildDigest(sampleTurns())+"\n", string(data))
}

func TestExportToFile_Empty(t *testing.T) {
	_, err := ExportToFile(nil, DigestExporter{}, &Options{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestWriteDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "digest.txt")
	require.NoError(t, WriteDigest(path, sampleTurns()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USER: hello")
}

func TestExporterFor(t *testing.T) {
	for _, format := range []string{"", "txt", "digest", ".txt"} {
		e, err := ExporterFor(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ".txt", e.FileExtension())
	}
	e, err := ExporterFor("markdown", nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", e.FileExtension())
	assert.Equal(t, "text/markdown", e.MimeType())

	_, err = ExporterFor("pdf", nil)
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleTurns(), DefaultOptions())

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "turns: 3\n")
	assert.Contains(t, md, "# RK AI Chat History")
	assert.Contains(t, md, "### You <sub>Mar 14, 09:05</sub>")
	assert.Contains(t, md, "### RK AI")
	assert.Contains(t, md, `*\[Image Generated\]*`)
	assert.NotContains(t, md, "base64")

	plain := Markdown(sampleTurns(), &Options{})
	assert.False(t, strings.HasPrefix(plain, "---"))
	assert.Contains(t, plain, "### You\n\nhello")
}

// =============================================================================
// IMAGE TESTS
// =============================================================================

func TestDecodeDataURI(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	mime, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, payload, data)

	for _, bad := range []string{"https://example.com/x.png", "data:image/png,raw", "data:image/png;base64"} {
		_, _, err := DecodeDataURI(bad)
		assert.True(t, errors.Is(err, ErrNotDataURI), bad)
	}

	_, _, err = DecodeDataURI("data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")

	path, err := SaveImage("data:image/png;base64,iVBORw==", target)
	require.NoError(t, err)
	assert.Equal(t, target, path)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}
