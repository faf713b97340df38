// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestPaletteHasBothVariants(t *testing.T) {
	colors := map[string]lipgloss.AdaptiveColor{
		"Indigo":        Indigo,
		"Purple":        Purple,
		"Gold":          Gold,
		"Emerald":       Emerald,
		"Rose":          Rose,
		"Amber":         Amber,
		"TextPrimary":   TextPrimary,
		"TextMuted":     TextMuted,
		"UserBubbleBg":  UserBubbleBg,
		"ModelBubbleFg": ModelBubbleFg,
	}

	for name, c := range colors {
		if !strings.HasPrefix(c.Light, "#") || len(c.Light) != 7 {
			t.Errorf("%s.Light = %q, want #RRGGBB", name, c.Light)
		}
		if !strings.HasPrefix(c.Dark, "#") || len(c.Dark) != 7 {
			t.Errorf("%s.Dark = %q, want #RRGGBB", name, c.Dark)
		}
	}
}

func TestStatusIndicatorsUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, ind := range []string{
		StatusIndicators.Success,
		StatusIndicators.Error,
		StatusIndicators.Warning,
		StatusIndicators.Info,
	} {
		if ind == "" {
			t.Error("indicator should not be empty")
		}
		if seen[ind] {
			t.Errorf("indicator %q is duplicated", ind)
		}
		seen[ind] = true
	}
}

func TestRenderFunctions(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(string) string
		indicator string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.fn("History saved")
			if !strings.Contains(out, tc.indicator) {
				t.Errorf("output %q missing indicator %q", out, tc.indicator)
			}
			if !strings.Contains(out, "History saved") {
				t.Errorf("output %q missing message", out)
			}
		})
	}
}
