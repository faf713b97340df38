// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command, global flags and application bootstrap.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/logging"
	"github.com/jeranaias/rkai/internal/ui/chat"
)

// Version information (can be overridden at build time)
var (
	Version   = "2.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	backend    string
	ephemeral  bool
	logStderr  bool
	password   string
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the rkai command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rkai",
		Short: "RK AI - a passphrase-gated Gemini chat client",
		Long: `RK AI is a personal chat assistant backed by Google Gemini.

Unlock it with your passphrase, chat, and switch to Pro (:pro) to generate
images with "/image <prompt>". The transcript is stored locally and restored
on the next start.

Set GEMINI_API_KEY before chatting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.rkai/config.toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	pf.StringVar(&opts.backend, "backend", "", "transcript storage: file, bolt, sqlite, memory")
	pf.BoolVar(&opts.ephemeral, "ephemeral", false, "keep the transcript in memory only")
	pf.BoolVar(&opts.logStderr, "log-stderr", false, "write logs to stderr instead of the log file")
	pf.StringVar(&opts.password, "password", "", "passphrase for non-interactive commands (or RKAI_PASSWORD)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ValidationError{Field: "flag", Reason: err.Error(), Example: cmd.UseLine()}
	})

	root.AddCommand(
		newChatCommand(opts),
		newExportCommand(opts),
		newHistoryCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return ExecuteArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteArgs runs the command line with explicit arguments and streams.
func ExecuteArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		DisplayError(stderr, commandName(cmd), err, wantsJSON(cmd))
		return GetExitCode(err)
	}
	return ExitSuccess
}

// commandName is the command path without the program name, the form used
// in JSON responses ("history list").
func commandName(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	path := cmd.CommandPath()
	if i := strings.IndexByte(path, ' '); i >= 0 {
		return path[i+1:]
	}
	return path
}

// wantsJSON reports whether the failed command was asked for --json output.
func wantsJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}
	f := cmd.Flags().Lookup("json")
	return f != nil && f.Value.String() == "true"
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// loadConfig loads the config file and applies the global flags on top.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if opts.ephemeral {
		cfg.Storage.Backend = "memory"
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logStderr {
		cfg.Log.Console = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// bootstrap bundles an opened application with its logger.
type bootstrap struct {
	cfg    *config.Config
	app    *app.App
	logger zerolog.Logger
	logs   io.Closer
}

func (s *bootstrap) Close() {
	_ = s.app.Close()
	_ = s.logs.Close()
}

// openApp loads config, sets up logging and builds the application.
func openApp(cmd *cobra.Command, opts *globalOptions) (*bootstrap, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logOpts := logging.FromConfig(cfg.Log)
	logOpts.Stderr = cmd.ErrOrStderr()
	logger, logs, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("command", cmd.CommandPath()).Str("version", Version).Msg("starting")

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		_ = logs.Close()
		return nil, WrapError(err, "open transcript")
	}
	return &bootstrap{cfg: cfg, app: a, logger: logger, logs: logs}, nil
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	if err := RequiresTTY("run the chat interface"); err != nil {
		return fmt.Errorf("%w (use \"rkai chat\" or \"rkai export\" instead)", err)
	}

	s, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	return chat.Run(cmd.Context(), s.app, chat.Options{
		RenderMarkdown: s.cfg.UI.RenderMarkdown,
		ShowWelcome:    s.cfg.Chat.ShowWelcome,
		ConfirmClear:   s.cfg.Chat.ConfirmClear,
		Theme:          s.cfg.UI.Theme,
		Compact:        s.cfg.UI.CompactMode,
		Version:        Version,
		Logger:         s.logger,
	})
}

// =============================================================================
// VERSION
// =============================================================================

// VersionData is the --json form of "rkai version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if jsonOut {
				return NewJSONResponse("version", data).Print(cmd.OutOrStdout())
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rkai version %s\n", data.Version)
			if data.GitCommit != "unknown" {
				fmt.Fprintf(out, "  commit: %s\n", data.GitCommit)
			}
			if data.BuildDate != "unknown" {
				fmt.Fprintf(out, "  built:  %s\n", data.BuildDate)
			}
			fmt.Fprintf(out, "  %s %s\n", data.GoVersion, data.Platform)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

// joinQuoted renders a list for help text.
func joinQuoted(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
