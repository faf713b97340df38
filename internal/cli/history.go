// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Transcript commands for rkai.
//
// Subcommands:
//   history list [--limit N] [--json]   List stored turns
//   history clear [--yes]               Delete the stored transcript
//   export [--format txt|md] [--out P]  Print or write the transcript
//   export --mail | --clip              Hand the digest to mail or the clipboard
//
// Both need the passphrase: --password, RKAI_PASSWORD, or an interactive
// prompt on a terminal.
//
// Examples:
//   rkai history list --limit 5
//   RKAI_PASSWORD=rkai rkai export --format md --out chat.md
//   rkai export --mail

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/export"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/ui/styles"
	"github.com/jeranaias/rkai/internal/util"
)

// PasswordEnvVar supplies the passphrase to non-interactive commands.
const PasswordEnvVar = "RKAI_PASSWORD"

// passwordPrompt asks for the passphrase on the terminal.
var passwordPrompt = func(prompt string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	return line.PasswordPrompt(prompt)
}

// Platform hand-off, replaceable in tests.
var (
	openURI         = export.OpenURI
	copyToClipboard = export.CopyToClipboard
)

// unlockApp opens the session gate for a one-shot command.
func unlockApp(a *app.App, opts *globalOptions) error {
	candidate := opts.password
	if candidate == "" {
		candidate = os.Getenv(PasswordEnvVar)
	}
	if candidate == "" {
		if !IsTTY() {
			return fmt.Errorf("%w: pass --password or set %s", app.ErrLocked, PasswordEnvVar)
		}
		var err error
		if candidate, err = passwordPrompt(app.PasswordHint + ": "); err != nil {
			return fmt.Errorf("%w: %v", app.ErrLocked, err)
		}
	}
	return a.Unlock(candidate)
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryEntry is the --json form of one turn.
type HistoryEntry struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the stored transcript",
	}
	cmd.AddCommand(newHistoryListCommand(opts), newHistoryClearCommand(opts))
	return cmd
}

func newHistoryListCommand(opts *globalOptions) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return &ValidationError{Field: "limit", Value: fmt.Sprint(limit), Reason: "must not be negative"}
			}
			s, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := unlockApp(s.app, opts); err != nil {
				return err
			}

			turns, err := s.app.Transcript()
			if err != nil {
				return err
			}
			start := 0
			if limit > 0 && len(turns) > limit {
				start = len(turns) - limit
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				entries := make([]HistoryEntry, 0, len(turns)-start)
				for i := start; i < len(turns); i++ {
					t := turns[i]
					entries = append(entries, HistoryEntry{
						Index: i + 1, ID: t.ID, Role: t.Role.String(), Kind: t.Kind.String(),
						Content: t.Content, Timestamp: t.Timestamp,
					})
				}
				return NewJSONResponse("history list", entries).Print(out)
			}

			if len(turns) == 0 {
				fmt.Fprintln(out, "No messages yet.")
				return nil
			}
			width := GetTerminalWidth() - 30
			if width < 20 {
				width = 20
			}
			for i := start; i < len(turns); i++ {
				t := turns[i]
				fmt.Fprintf(out, "%3d  %s %s %s\n",
					i+1,
					DimStyle.Render(t.Timestamp.Local().Format("Jan 2 15:04")),
					roleLabel(t.Role),
					util.TruncateWidth(t.Preview(width), width))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last N turns")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

func newHistoryClearCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return &ValidationError{Field: "confirmation", Reason: "refusing to clear without --yes", Example: "rkai history clear --yes"}
			}
			s, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := unlockApp(s.app, opts); err != nil {
				return err
			}
			ctrl, err := s.app.Conversation()
			if err != nil {
				return err
			}
			n := len(ctrl.Transcript())
			if err := ctrl.ClearTranscript(cmd.Context()); err != nil {
				return NewCommandError("history", "clear", "could not write the empty transcript", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d messages.\n", RenderConditional(SuccessStyle, "Cleared"), n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func roleLabel(r model.Role) string {
	if r == model.RoleUser {
		return UserStyle.Render(r.DisplayName() + ":")
	}
	return ModelStyle.Render(r.DisplayName() + ":")
}

// =============================================================================
// EXPORT
// =============================================================================

func newExportCommand(opts *globalOptions) *cobra.Command {
	var (
		format  string
		outPath string
		mail    bool
		clip    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the transcript",
		Long: `Export the transcript as a plain-text digest or Markdown.

Without --out the export is written to stdout. --mail opens the mail composer
with the digest as the body; --clip copies the digest to the clipboard.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mail && clip {
				return &ValidationError{Field: "flags", Reason: "--mail and --clip are mutually exclusive"}
			}
			s, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if format == "" {
				format = s.cfg.Export.Format
			}
			exporter, err := export.ExporterFor(format, &export.Options{
				OutputDir:       s.cfg.Export.OutputDir,
				IncludeMetadata: s.cfg.Export.IncludeMetadata,
			})
			if err != nil {
				return ErrUnsupportedFormat(format, []string{"txt", "md"})
			}

			if err := unlockApp(s.app, opts); err != nil {
				return err
			}
			turns, err := s.app.Transcript()
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				return export.ErrEmptyTranscript
			}

			out := cmd.OutOrStdout()
			switch {
			case mail:
				if err := openURI(export.MailtoURI(export.DigestSubject, export.BuildDigest(turns))); err != nil {
					return NewCommandError("export", "mail", "could not open the mail composer", err)
				}
				fmt.Fprintln(out, styles.RenderSuccess("Opened the mail composer."))
				return nil
			case clip:
				if err := copyToClipboard(export.BuildDigest(turns)); err != nil {
					return NewCommandError("export", "clip", "could not copy to the clipboard", err)
				}
				fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("Copied %d messages to the clipboard.", len(turns))))
				return nil
			}

			if outPath == "" {
				data, err := exporter.Export(turns)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			// A directory gets a timestamped file name.
			if info, err := os.Stat(outPath); (err == nil && info.IsDir()) || strings.HasSuffix(outPath, string(filepath.Separator)) {
				written, err := export.ExportToFile(turns, exporter, &export.Options{OutputDir: outPath})
				if err != nil {
					return NewCommandError("export", "write", outPath, err)
				}
				outPath = written
			} else if _, digest := exporter.(export.DigestExporter); digest {
				if err := export.WriteDigest(outPath, turns); err != nil {
					return NewCommandError("export", "write", outPath, err)
				}
			} else {
				data, err := exporter.Export(turns)
				if err != nil {
					return err
				}
				if err := util.AtomicWriteFile(util.ExpandHome(outPath), data, 0600); err != nil {
					return NewCommandError("export", "write", outPath, err)
				}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderSuccess(fmt.Sprintf("Exported %d messages to %s", len(turns), outPath)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "export format: txt or md (default from config)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&mail, "mail", false, "open the mail composer with the digest")
	cmd.Flags().BoolVar(&clip, "clip", false, "copy the digest to the clipboard")
	return cmd
}
