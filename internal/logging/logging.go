// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/util"
)

// DefaultFileName is the log file created inside the config directory.
const DefaultFileName = "rkai.log"

// Options selects where and how much to log.
type Options struct {
	Level   string
	File    string
	Console bool
	// Stderr is the console destination; os.Stderr when nil.
	Stderr io.Writer
}

// FromConfig converts the [log] section to Options.
func FromConfig(cfg config.LogConfig) Options {
	return Options{Level: cfg.Level, File: cfg.File, Console: cfg.Console}
}

// ParseLevel converts a level name into a zerolog.Level with a safe default.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	case "info":
		fallthrough
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger and a closer for the underlying file. The closer is
// never nil.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)

	if opts.Console {
		out := opts.Stderr
		if out == nil {
			out = os.Stderr
		}
		w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if level == zerolog.Disabled {
		return zerolog.Nop(), nopCloser{}, nil
	}

	path, err := resolvePath(opts.File)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), util.DefaultDirPerm); err != nil {
		return zerolog.Nop(), nopCloser{}, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, errors.Wrapf(err, "open log file %s", path)
	}

	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, f, nil
}

func resolvePath(file string) (string, error) {
	if file != "" {
		return util.ExpandHome(file), nil
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
