// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import "github.com/jeranaias/rkai/internal/conversation"

// Text shared by both front ends.
const (
	Name           = "RK AI"
	Tagline        = "Secure Personal Assistant"
	WelcomeTitle   = "Welcome to RK AI"
	WelcomeMessage = "Your personal assistant for code, images, and daily tasks."
	PasswordHint   = "Enter password (try 'rkai')"
	Footer         = "Powered by Gemini"
	UpgradeLabel   = "Upgrade (₹100/mo)"
	ProLabel       = "Pro Active"
)

// Starter is a suggested first prompt shown on an empty transcript.
type Starter struct {
	Title  string
	Hint   string
	Prompt string
}

// Starters are offered by the welcome screen.
var Starters = []Starter{
	{Title: "Write Code", Hint: "Error-free pro coding", Prompt: "Write a clean Python function to sort a list."},
	{Title: "Create Art", Hint: "Pro image generation", Prompt: "Generate an image of a futuristic city in the mountains."},
}

// Placeholder returns the input hint for a tier.
func Placeholder(tier conversation.Tier) string {
	if tier == conversation.Elevated {
		return "Ask anything or /image..."
	}
	return "Ask RK AI anything..."
}
