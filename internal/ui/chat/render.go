// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownCache keeps one glamour renderer per wrap width. The style is
// fixed up front; glamour's auto style would query the terminal, which is
// owned by Bubble Tea while the program runs.
type markdownCache struct {
	style     string
	renderers map[int]*glamour.TermRenderer
	broken    bool
}

func newMarkdownCache(dark bool) *markdownCache {
	style := "light"
	if dark {
		style = "dark"
	}
	return &markdownCache{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render formats content as markdown wrapped at width. Plain content is
// returned when rendering fails.
func (c *markdownCache) Render(content string, width int) string {
	if c.broken || width < 10 {
		return content
	}
	r, ok := c.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(c.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			c.broken = true
			return content
		}
		c.renderers[width] = r
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
