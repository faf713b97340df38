// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rkai/internal/model"
)

const (
	// DigestSubject is the mail subject used for digest hand-off.
	DigestSubject = "RK AI Chat History"

	// DigestTimeLayout formats turn timestamps in the digest (local time).
	DigestTimeLayout = "2006-01-02 15:04"
)

// BuildDigest renders turns as "[yyyy-MM-dd HH:mm] ROLE: content" lines
// separated by a blank line. Image turns are shown as a placeholder.
func BuildDigest(turns []model.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, digestLine(t))
	}
	return strings.Join(lines, "\n\n")
}

func digestLine(t model.Turn) string {
	content := t.Content
	if t.IsImage() {
		content = model.ImagePlaceholder
	}
	return fmt.Sprintf("[%s] %s: %s",
		t.Timestamp.Local().Format(DigestTimeLayout),
		strings.ToUpper(t.Role.String()),
		content)
}
