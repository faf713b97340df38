// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rkai.log")

	logger, closer, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug().Str("component", "test").Msg("hello")
	logger.Trace().Msg("filtered")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.NotContains(t, string(data), "filtered")
}

func TestNew_DefaultPathUnderHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RKAI_HOME", dir)

	logger, closer, err := New(Options{})
	require.NoError(t, err)
	logger.Info().Msg("started")
	require.NoError(t, closer.Close())

	_, err = os.Stat(filepath.Join(dir, DefaultFileName))
	assert.NoError(t, err)
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "warn", Console: true, Stderr: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestNew_Disabled(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := New(Options{Level: "disabled", File: filepath.Join(dir, "x.log")})
	require.NoError(t, err)
	logger.Error().Msg("nothing")
	require.NoError(t, closer.Close())

	_, err = os.Stat(filepath.Join(dir, "x.log"))
	assert.True(t, os.IsNotExist(err))
}
