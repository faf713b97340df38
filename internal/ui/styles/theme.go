// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	ProBadge       lipgloss.Style
	UpgradeButton  lipgloss.Style

	// ==========================================================================
	// LOGIN STYLES
	// ==========================================================================

	LoginBox   lipgloss.Style
	LoginTitle lipgloss.Style
	LoginError lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble    lipgloss.Style
	ModelBubble   lipgloss.Style
	ImageCard     lipgloss.Style
	PendingBubble lipgloss.Style
	RoleLabel     lipgloss.Style
	Timestamp     lipgloss.Style
	ErrorBanner   lipgloss.Style
	Notice        lipgloss.Style

	// ==========================================================================
	// WELCOME STYLES
	// ==========================================================================

	WelcomeTitle lipgloss.Style
	WelcomeText  lipgloss.Style
	StarterCard  lipgloss.Style
	StarterTitle lipgloss.Style
	StarterHint  lipgloss.Style

	// ==========================================================================
	// INPUT AND FOOTER STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Footer         lipgloss.Style
	Muted          lipgloss.Style
	Spinner        lipgloss.Style
}

// NewTheme creates a new theme with all styles configured. mode is "dark",
// "light" or "auto" (detect from the terminal).
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	isDark := true
	switch strings.ToLower(mode) {
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.ProBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Gold).
		Padding(0, 1)

	t.UpgradeButton = lipgloss.NewStyle().
		Foreground(Gold).
		Underline(true)

	// Login
	t.LoginBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(1, 3).
		Align(lipgloss.Center)

	t.LoginTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo).
		MarginBottom(1)

	t.LoginError = lipgloss.NewStyle().
		Foreground(Rose)

	// Messages
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.ModelBubble = lipgloss.NewStyle().
		Foreground(ModelBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ModelBubbleBorder).
		Padding(0, 1)

	t.ImageCard = lipgloss.NewStyle().
		Foreground(Purple).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Purple).
		Padding(0, 2)

	t.PendingBubble = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Padding(0, 1)

	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseDeep).
		Padding(0, 1)

	t.Notice = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(Indigo).
		PaddingLeft(1)

	// Welcome
	t.WelcomeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.WelcomeText = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.StarterCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1).
		Width(30)

	t.StarterTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	t.StarterHint = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Input and footer
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.Footer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Center)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Indigo)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// BubbleWidth returns the maximum width of a message bubble.
func (t *Theme) BubbleWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return max(t.Width-2, 10)
	case LayoutMedium:
		return t.Width * 4 / 5
	default:
		return min(t.Width*3/4, 110)
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
