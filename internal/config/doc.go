// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rkai.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - GeminiConfig: API key, models and request limits
//   - StorageConfig: Transcript slot backend and recovery policy
//   - ValidationError: A single invalid field
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GEMINI_API_KEY, RKAI_*)
//   - ~/.rkai/config.toml (or the file given with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	slotPath := cfg.Storage.ResolvedPath()
package config
