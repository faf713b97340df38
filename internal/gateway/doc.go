// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the completion gateway for rkai.
//
// The Gateway interface hides the hosted model behind two calls: one for
// text replies and one for image generation. GeminiGateway implements it
// over the Gemini API using google.golang.org/genai.
//
// # Key Types
//
//   - Gateway: Interface used by the conversation controller
//   - GeminiGateway: Gemini API implementation with lazy client setup
//   - GenerationError: The single failure kind returned by every call
//
// # Usage
//
//	gw := gateway.NewGeminiGateway(os.Getenv("GEMINI_API_KEY")).
//	    WithTimeout(2 * time.Minute).
//	    WithLogger(logger)
//	reply, err := gw.CompleteText(ctx, "Explain goroutines", history)
//
// # Security
//
// The API key is never logged. Logs carry model names, durations and a
// short key fingerprint only; prompts and replies are never written.
package gateway
