// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rkai/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts the turns to Markdown.
func (e *MarkdownExporter) Export(turns []model.Turn) ([]byte, error) {
	if len(turns) == 0 {
		return nil, ErrEmptyTranscript
	}
	return []byte(Markdown(turns, e.options)), nil
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns "text/markdown".
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// Markdown renders turns as a Markdown document. Image turns are rendered
// as a placeholder; the data URI is not embedded.
func Markdown(turns []model.Turn, opts *Options) string {
	if opts == nil {
		opts = DefaultOptions()
	}

	var sb strings.Builder

	if opts.IncludeMetadata && len(turns) > 0 {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(DigestSubject)))
		sb.WriteString(fmt.Sprintf("started: %s\n", turns[0].Timestamp.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", turns[len(turns)-1].Timestamp.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("turns: %d\n", len(turns)))
		sb.WriteString("generator: rkai\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", DigestSubject))

	for i, t := range turns {
		label := t.Role.DisplayName()
		if opts.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(t.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		if t.IsImage() {
			sb.WriteString("*" + escapeMarkdown(model.ImagePlaceholder) + "*")
		} else {
			sb.WriteString(strings.TrimRight(t.Content, "\n"))
		}
		sb.WriteString("\n\n")

		if i < len(turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if len(turns) > 0 {
		sb.WriteString(fmt.Sprintf("\n---\n\n*Exported from rkai on %s*\n", formatTimestamp(time.Now())))
	}
	return sb.String()
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a front matter value if it holds special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
