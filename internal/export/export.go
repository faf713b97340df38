// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in a file format.
type Exporter interface {
	// Export converts the turns to the target format.
	Export(turns []model.Turn) ([]byte, error)

	// FileExtension returns the file extension, including the dot.
	FileExtension() string

	// MimeType returns the MIME type of the format.
	MimeType() string
}

// ErrEmptyTranscript is returned when exporting a transcript with no turns.
var ErrEmptyTranscript = errors.New("transcript has no turns")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures file exports.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata adds a front matter header (Markdown only).
	IncludeMetadata bool

	// IncludeTimestamps adds per-turn timestamps (Markdown only).
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ExporterFor returns the exporter for a format name ("txt" or "md").
func ExporterFor(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "txt", "text", "digest":
		return DigestExporter{}, nil
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (use txt or md)", format)
	}
}

// =============================================================================
// DIGEST EXPORTER
// =============================================================================

// DigestExporter writes the plain-text digest.
type DigestExporter struct{}

// Export renders the digest followed by a trailing newline.
func (DigestExporter) Export(turns []model.Turn) ([]byte, error) {
	if len(turns) == 0 {
		return nil, ErrEmptyTranscript
	}
	return []byte(BuildDigest(turns) + "\n"), nil
}

// FileExtension returns ".txt".
func (DigestExporter) FileExtension() string { return ".txt" }

// MimeType returns "text/plain".
func (DigestExporter) MimeType() string { return "text/plain; charset=utf-8" }

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes the exported transcript to a timestamped file in
// opts.OutputDir and returns its path.
func ExportToFile(turns []model.Turn, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(turns)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("rk-ai-chat_%s%s", time.Now().Format("20060102_150405"), exporter.FileExtension())
	outputPath := filepath.Join(util.ExpandHome(opts.OutputDir), filename)

	if err := util.AtomicWriteFile(outputPath, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// WriteDigest writes the plain-text digest to path.
func WriteDigest(path string, turns []model.Turn) error {
	content, err := DigestExporter{}.Export(turns)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(util.ExpandHome(path), content, 0600); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("January 2, 2006 at 3:04 PM")
}

// formatShortTimestamp formats a timestamp in short form.
func formatShortTimestamp(t time.Time) string {
	return t.Local().Format("Jan 2, 15:04")
}
