// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"regexp"
	"strings"
)

// DefaultImagePrompt is used when an image request carries no description.
const DefaultImagePrompt = "a futuristic assistant"

// RequestKind distinguishes text and image requests.
type RequestKind int

const (
	TextRequest RequestKind = iota
	ImageRequest
)

// String returns "text" or "image".
func (k RequestKind) String() string {
	if k == ImageRequest {
		return "image"
	}
	return "text"
}

// Request is a classified submission.
type Request struct {
	Kind   RequestKind
	Prompt string // what is sent to the gateway
	Raw    string // input as typed
}

// IsImage reports whether the request asks for an image.
func (r Request) IsImage() bool {
	return r.Kind == ImageRequest
}

var (
	imageCommand = regexp.MustCompile(`(?i)^/image\s+`)
	imagePhrase  = regexp.MustCompile(`(?i)generate image`)
)

// Classify decides whether raw asks for an image. Input starting with
// "/image " or containing "generate image" (case-insensitive) is an image
// request; its prompt is the input with the command prefix removed, then
// the first occurrence of the phrase removed, then trimmed. Anything else
// is a text request carrying raw unchanged.
func Classify(raw string) Request {
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "/image ") && !strings.Contains(lower, "generate image") {
		return Request{Kind: TextRequest, Prompt: raw, Raw: raw}
	}

	prompt := imageCommand.ReplaceAllString(raw, "")
	if loc := imagePhrase.FindStringIndex(prompt); loc != nil {
		prompt = prompt[:loc[0]] + prompt[loc[1]:]
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultImagePrompt
	}
	return Request{Kind: ImageRequest, Prompt: prompt, Raw: raw}
}
