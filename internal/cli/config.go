// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation.
//
// Subcommands:
//   show                Display the effective configuration (secrets redacted)
//   path                Show the configuration file path
//   init [--force]      Write a default configuration file
//   get <key>           Print one value (dot notation)
//   set <key> <value>   Change one value in the configuration file
//
// Examples:
//   rkai config show --json
//   rkai config set storage.backend bolt
//   rkai config set gemini.rate_limit_per_minute 10
//   rkai config get gemini.text_model

package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rkai/internal/config"
)

// secretKeys are never printed by "config get".
var secretKeys = map[string]bool{
	"gemini.api_key": true,
	"auth.secrets":   true,
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
	}
	cmd.AddCommand(
		newConfigShowCommand(opts),
		newConfigPathCommand(opts),
		newConfigInitCommand(opts),
		newConfigGetCommand(opts),
		newConfigSetCommand(opts),
	)
	return cmd
}

func configFilePath(opts *globalOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return config.ConfigPath()
}

func newConfigShowCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				fmt.Fprintln(out, cfg.String())
				return nil
			}

			keys := config.GetAllKeys()
			sort.Strings(keys)
			for _, key := range keys {
				val, err := cfg.Get(key)
				if err != nil {
					continue
				}
				fmt.Fprintf(out, "%-30s %s\n", key, maskIfSecret(key, val))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

func newConfigPathCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("(file does not exist yet; run \"rkai config init\")"))
			}
			return nil
		},
	}
}

func newConfigInitCommand(opts *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return NewCommandError("config", "init", "file already exists (use --force to overwrite)", nil)
			}
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", RenderConditional(SuccessStyle, "Wrote"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			key := strings.ToLower(args[0])
			val, err := cfg.Get(key)
			if err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(), Example: "rkai config get storage.backend"}
			}
			fmt.Fprintln(cmd.OutOrStdout(), maskIfSecret(key, val))
			return nil
		},
	}
}

func newConfigSetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a value in the configuration file",
		Long:  "Change a value in the configuration file.\n\nKeys: " + joinQuoted(config.GetAllKeys()),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(opts)
			if err != nil {
				return err
			}

			// Start from the file alone so environment overrides are not persisted.
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				if err := config.LoadTOML(cfg, path); err != nil {
					return err
				}
			}

			key := strings.ToLower(args[0])
			if err := cfg.Set(key, args[1]); err != nil {
				return &ValidationError{Field: "key", Value: args[0], Reason: err.Error(), Example: "rkai config set storage.backend bolt"}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return err
			}
			val, _ := cfg.Get(key)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, maskIfSecret(key, val))
			return nil
		},
	}
}

// maskIfSecret formats a value, hiding secrets.
func maskIfSecret(key string, val interface{}) string {
	if secretKeys[key] {
		switch v := val.(type) {
		case string:
			return maskAPIKey(v)
		case []string:
			return fmt.Sprintf("[%d hidden]", len(v))
		}
	}
	if list, ok := val.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprintf("%v", val)
}

// maskAPIKey shows only the last four characters.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
