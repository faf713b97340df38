// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import "errors"

// ErrFeatureGated is matched by every FeatureGatedError.
var ErrFeatureGated = errors.New("feature requires the Pro tier")

// FeatureGatedError is returned for an image request on the standard tier.
type FeatureGatedError struct {
	Feature string
}

// Error implements the error interface.
func (e *FeatureGatedError) Error() string {
	return "Image generation is a Pro feature. Upgrade to RK AI Pro for 100rs/month."
}

// Is reports whether target is ErrFeatureGated.
func (e *FeatureGatedError) Is(target error) bool {
	return target == ErrFeatureGated
}
