// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Completion represents a completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// FilesFn returns matching paths; the working directory is read when nil.
	FilesFn func(prefix string) []string
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the given input.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), Prefix) {
		return nil
	}
	input = strings.TrimLeft(input, " ")

	// Still typing the command name?
	if partial := GetPartialCommand(input); partial != "" {
		return c.completeCommands(partial)
	}

	cmd := c.registry.Get(strings.ToLower(ExtractCommandName(input)))
	if cmd == nil {
		return nil
	}

	argIndex, partial := GetPartialArg(input)
	return c.completeArg(cmd, argIndex, partial)
}

// Lines returns whole-line completions, the shape line editors expect.
func (c *Completer) Lines(line string) []string {
	completions := c.Complete(line)
	if len(completions) == 0 {
		return nil
	}

	head := ""
	if GetPartialCommand(strings.TrimLeft(line, " ")) == "" {
		head = line
		if idx := strings.LastIndex(line, " "); idx >= 0 {
			head = line[:idx+1]
		}
	}

	lines := make([]string, 0, len(completions))
	for _, comp := range completions {
		lines = append(lines, head+comp.Value)
	}
	return lines
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(alias, partial) && partial != Prefix {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	case ArgTypeFile:
		return c.completeFiles(partial)
	case ArgTypeCommand:
		var names []string
		for _, other := range c.registry.All() {
			if !other.Hidden {
				names = append(names, strings.TrimPrefix(other.Name, Prefix))
			}
		}
		return completeFromList(names, partial)
	default:
		return nil
	}
}

func (c *Completer) completeFiles(partial string) []Completion {
	if c.FilesFn != nil {
		return completeFromList(c.FilesFn(partial), partial)
	}

	dir, prefix := ".", ""
	if partial != "" {
		dir, prefix = filepath.Dir(partial), filepath.Base(partial)
		if strings.HasSuffix(partial, string(os.PathSeparator)) {
			dir, prefix = partial, ""
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	prefix = strings.ToLower(prefix)
	var completions []Completion
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), prefix) {
			continue
		}
		// Skip hidden files unless asked for
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		score := calculateScore(name, prefix)
		if entry.IsDir() {
			path += string(os.PathSeparator)
			score += 5
		}
		completions = append(completions, Completion{
			Value:   path,
			Display: name,
			Score:   score,
		})
	}

	sortCompletions(completions)
	if len(completions) > 20 {
		completions = completions[:20]
	}
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore calculates a match score for completion ranking.
// Higher score = better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the state for navigating completions.
type CompletionState struct {
	Completions []Completion
	Selected    int
	Visible     bool
}

// NewCompletionState creates a new completion state.
func NewCompletionState() *CompletionState {
	return &CompletionState{Selected: -1}
}

// Update replaces the completions and selects the first one.
func (cs *CompletionState) Update(completions []Completion) {
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next completion.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous completion.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Clear clears the completion state.
func (cs *CompletionState) Clear() {
	cs.Completions = nil
	cs.Selected = -1
	cs.Visible = false
}
