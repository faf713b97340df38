// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-oriented chat command for rkai.
//
// Handles the "rkai chat" command which provides a REPL for conversing with
// Gemini when a full-screen interface is not wanted.
//
// Command: chat
// Short:   Start a line-oriented chat session
//
// Examples:
//   rkai chat                 Start chatting (prompts for the passphrase)
//   rkai chat --ephemeral     Do not touch the stored transcript
//
// Interactive Commands (during chat):
//   :help, :h           Show available commands
//   :pro / :standard    Switch tier
//   :clear              Clear the chat history
//   :export [target]    Send the history to mail, clipboard or a file
//   :save-image [path]  Save the latest generated image
//   :lock               Lock the session
//   :quit, :q           Exit chat
//   /image <prompt>     Generate an image (Pro)
//   Ctrl+C, Ctrl+D      Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rkai/internal/app"
	"github.com/jeranaias/rkai/internal/commands"
	"github.com/jeranaias/rkai/internal/config"
	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/gateway"
	"github.com/jeranaias/rkai/internal/model"
	"github.com/jeranaias/rkai/internal/session"
	"github.com/jeranaias/rkai/internal/ui/styles"
)

// inputHistoryFile holds REPL line history inside the config directory.
const inputHistoryFile = "chat_history"

// LineReader reads lines from the user. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newChatCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-oriented chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			repl := NewREPL(s.app, line, cmd.OutOrStdout())
			repl.Markdown = s.cfg.UI.RenderMarkdown && IsStdoutTTY()
			repl.ShowWelcome = s.cfg.Chat.ShowWelcome
			repl.ConfirmClear = s.cfg.Chat.ConfirmClear

			line.SetCompleter(repl.completer.Lines)
			historyPath := loadInputHistory(line)
			defer saveInputHistory(line, historyPath)

			return repl.Run(context.Background())
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func loadInputHistory(line *liner.State) string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, inputHistoryFile)
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return path
}

func saveInputHistory(line *liner.State, path string) {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-oriented front end. It drives the same application core
// as the full-screen interface.
type REPL struct {
	Markdown     bool
	ShowWelcome  bool
	ConfirmClear bool

	app       *app.App
	registry  *commands.Registry
	completer *commands.Completer
	env       *commands.Context
	in        LineReader
	out       io.Writer
	renderer  *glamour.TermRenderer
}

// NewREPL creates a REPL reading from in and writing to out.
func NewREPL(a *app.App, in LineReader, out io.Writer) *REPL {
	registry := commands.NewRegistry()
	return &REPL{
		ShowWelcome:  true,
		ConfirmClear: true,
		app:          a,
		registry:     registry,
		completer:    commands.NewCompleter(registry),
		env:          commands.NewContext(a),
		in:           in,
		out:          out,
	}
}

// Env exposes the command context so callers can replace the platform
// hand-off functions.
func (r *REPL) Env() *commands.Context {
	return r.env
}

// Run unlocks the session and loops until the user quits or input ends.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.unlock(); err != nil {
		return quietEOF(err)
	}
	r.welcome()

	for {
		ctrl, err := r.app.Conversation()
		if err != nil {
			if err := r.unlock(); err != nil {
				return quietEOF(err)
			}
			continue
		}

		input, err := r.in.Prompt(promptFor(ctrl.Tier()))
		if err != nil {
			fmt.Fprintln(r.out)
			return quietEOF(err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		r.in.AppendHistory(input)

		quit, err := r.Handle(ctx, input)
		if err != nil {
			r.printError(err)
		}
		if quit {
			return nil
		}
	}
}

// unlock prompts for the passphrase until it matches.
func (r *REPL) unlock() error {
	fmt.Fprintln(r.out, TitleStyle.Render(app.Name)+"  "+DimStyle.Render(app.Tagline))
	fmt.Fprintln(r.out, RenderSeparator())
	for !r.app.IsUnlocked() {
		candidate, err := r.in.PasswordPrompt(app.PasswordHint + ": ")
		if err != nil {
			return err
		}
		if err := r.app.Unlock(candidate); err != nil {
			fmt.Fprintln(r.out, styles.RenderError(err.Error()))
			continue
		}
	}
	return nil
}

func (r *REPL) welcome() {
	if !r.ShowWelcome {
		return
	}
	turns, err := r.app.Transcript()
	if err != nil {
		return
	}
	if report := r.app.LoadReport(); report.Corrupt() {
		fmt.Fprintln(r.out, styles.RenderWarning("Stored history could not be read; starting fresh."))
	}
	if len(turns) > 0 {
		fmt.Fprintf(r.out, "%s\n\n", DimStyle.Render(fmt.Sprintf("Restored %d messages. :history to review, :help for commands.", len(turns))))
		return
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, TitleStyle.Render(app.WelcomeTitle))
	fmt.Fprintln(r.out, app.WelcomeMessage)
	fmt.Fprintln(r.out)
	for _, s := range app.Starters {
		fmt.Fprintf(r.out, "  %s  %s\n    %s\n", RenderLabel(s.Title), DimStyle.Render(s.Hint), s.Prompt)
		// Up-arrow recalls the starters.
		r.in.AppendHistory(s.Prompt)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, DimStyle.Render(":help for commands  "+app.Footer))
	fmt.Fprintln(r.out)
}

// Handle processes one line of input. It reports whether the user asked to
// quit.
func (r *REPL) Handle(ctx context.Context, input string) (bool, error) {
	if commands.IsCommand(input) {
		return r.handleCommand(ctx, input)
	}

	ctrl, err := r.app.Conversation()
	if err != nil {
		return false, err
	}

	res, err := ctrl.Submit(ctx, input)
	if res.PersistErr != nil {
		fmt.Fprintln(r.out, styles.RenderWarning("History could not be saved: "+res.PersistErr.Error()))
	}
	if err != nil {
		return false, err
	}
	if !res.Accepted {
		return false, nil
	}
	if res.Reply != nil {
		r.printReply(*res.Reply)
	}
	return false, nil
}

func (r *REPL) handleCommand(ctx context.Context, input string) (bool, error) {
	parsed := commands.NewParser(r.registry).Parse(input)
	if parsed.Command != nil && parsed.Command.Confirm != "" && r.ConfirmClear && r.app.IsUnlocked() {
		answer, err := r.in.Prompt(parsed.Command.Confirm + " [y/N] ")
		if err != nil {
			return false, nil
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(r.out, styles.RenderInfo("Cancelled."))
			return false, nil
		}
	}

	outcome, err := r.registry.Execute(ctx, r.env, input)
	if err != nil {
		return false, err
	}
	if outcome.Message != "" {
		fmt.Fprintln(r.out, outcome.Message)
	}
	if outcome.Locked {
		fmt.Fprintln(r.out)
		if err := r.unlock(); err != nil {
			return true, quietEOF(err)
		}
	}
	return outcome.Quit, nil
}

func (r *REPL) printReply(turn model.Turn) {
	label := ModelStyle.Render(turn.Role.DisplayName() + ":")
	if turn.IsImage() {
		fmt.Fprintf(r.out, "%s %s %s\n\n", label, model.ImagePlaceholder, DimStyle.Render("(:save-image to save)"))
		return
	}
	fmt.Fprintln(r.out, label)
	fmt.Fprintln(r.out, r.render(turn.Content))
}

// render formats markdown when enabled, falling back to wrapped plain text.
func (r *REPL) render(content string) string {
	if !r.Markdown {
		return WrapText(content, replyWidth()) + "\n"
	}
	if r.renderer == nil {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(replyWidth()),
		)
		if err != nil {
			r.Markdown = false
			return WrapText(content, replyWidth()) + "\n"
		}
		r.renderer = renderer
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

func (r *REPL) printError(err error) {
	var genErr *gateway.GenerationError
	var credErr *session.InvalidCredentialError
	switch {
	case errors.As(err, &genErr):
		fmt.Fprintln(r.out, styles.RenderError("Error: "+genErr.Message()))
	case errors.Is(err, conversation.ErrFeatureGated):
		fmt.Fprintln(r.out, styles.RenderWarning(err.Error()))
		fmt.Fprintln(r.out, styles.RenderInfo(":pro to upgrade"))
	case errors.As(err, &credErr):
		fmt.Fprintln(r.out, styles.RenderError(credErr.Error()))
	default:
		fmt.Fprintln(r.out, styles.RenderError("Error: "+err.Error()))
	}
	fmt.Fprintln(r.out)
}

// replyWidth caps reply wrapping on wide terminals.
func replyWidth() int {
	return min(GetTerminalWidth(), 100)
}

func promptFor(tier conversation.Tier) string {
	if tier == conversation.Elevated {
		return "rkai pro> "
	}
	return "rkai> "
}

// quietEOF treats end of input and Ctrl+C as a normal exit.
func quietEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
		return nil
	}
	return err
}
