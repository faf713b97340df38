// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
)

// Suggest returns the registered name or alias closest to input, or "" when
// nothing is close enough. Uses Levenshtein distance with a threshold based
// on the input length.
func (r *Registry) Suggest(input string) string {
	input = strings.ToLower(strings.TrimPrefix(input, Prefix))

	// Don't suggest for very short inputs (likely intentional)
	if len(input) < 2 {
		return ""
	}

	// <=3 chars: 1 edit, 4-8 chars: 2 edits (catches "hepl"), longer: 3
	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	candidates := make([]string, 0, len(r.commands)+len(r.aliases))
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		candidates = append(candidates, cmd.Name)
		candidates = append(candidates, cmd.Aliases...)
	}

	bestMatch := ""
	bestDistance := -1
	for _, name := range candidates {
		distance := levenshteinDistance(input, strings.TrimPrefix(name, Prefix))
		if distance == 0 {
			return ""
		}
		if distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = name
		}
	}
	return bestMatch
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	cols := len(s2) + 1

	// Two rows instead of the full matrix
	prev := make([]int, cols)
	curr := make([]int, cols)
	for j := 0; j < cols; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[cols-1]
}
