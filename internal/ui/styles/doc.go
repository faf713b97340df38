// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the rkai TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. NewTheme("dark") and NewTheme("light") force a palette instead.

# Color System (colors.go)

  - Indigo - Brand color for the header, prompt and send affordance
  - Purple - Generated image cards
  - Gold - Pro badge and the upgrade affordance
  - Rose - Errors and rejected passphrases
  - Amber - Gated features and warnings

StatusIndicators pair every status color with an ASCII marker ([OK], [X],
[!], [i]) so status never depends on color alone.

# Theme (theme.go)

Theme groups the rendered styles by screen area: header, login, messages,
welcome, and input/footer. BubbleWidth sizes message bubbles for the
current LayoutMode.
*/
package styles
