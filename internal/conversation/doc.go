// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation implements the conversation controller.
//
// The controller turns user input into transcript turns: it classifies the
// input as a text or image request, applies the tier policy, calls the
// completion gateway and appends the reply. At most one request is in
// flight at a time; input submitted while busy is ignored.
//
// # Key Types
//
//   - Controller: Submission state machine over a transcript and a gateway
//   - Request: Classified input (text or image, with the effective prompt)
//   - Tier: Standard or Elevated ("Pro"); image requests need Elevated
//   - FeatureGatedError: Image request on the standard tier
//
// # Usage
//
//	ctrl := conversation.NewController(store, gw, conversation.WithLogger(log))
//	res, err := ctrl.Submit(ctx, "/image a lighthouse at dusk")
//	if errors.As(err, new(*conversation.FeatureGatedError)) {
//	    // offer the upgrade
//	}
package conversation
