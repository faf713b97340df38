// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeranaias/rkai/internal/conversation"
	"github.com/jeranaias/rkai/internal/export"
	"github.com/jeranaias/rkai/internal/gateway"
	"github.com/jeranaias/rkai/internal/util"
)

// DefaultHistoryCount is the number of turns :history lists by default.
const DefaultHistoryCount = 10

// ErrNoImage is returned by :save-image when the transcript has no image turn.
var ErrNoImage = errors.New("no generated image in this conversation")

// =============================================================================
// HELP
// =============================================================================

func (r *Registry) handleHelp(ctx context.Context, env *Context, args []string) (Outcome, error) {
	if len(args) > 0 {
		name := args[0]
		if !strings.HasPrefix(name, Prefix) {
			name = Prefix + name
		}
		cmd := r.Get(strings.ToLower(name))
		if cmd == nil {
			return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
		}
		return Outcome{Message: describe(cmd)}, nil
	}

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		fmt.Fprintf(&b, "  %-26s %s\n", usage, cmd.Description)
	}
	b.WriteString("\nChat: type a message, or \"/image <prompt>\" for an image (Pro).")
	return Outcome{Message: b.String()}, nil
}

func describe(cmd *Command) string {
	var b strings.Builder
	usage := cmd.Usage
	if usage == "" {
		usage = cmd.Name
	}
	fmt.Fprintf(&b, "%s\n  %s", usage, cmd.Description)
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(&b, "\n  Aliases: %s", strings.Join(cmd.Aliases, ", "))
	}
	return b.String()
}

// =============================================================================
// TIER
// =============================================================================

func handlePro(ctx context.Context, env *Context, args []string) (Outcome, error) {
	ctrl, err := env.App.Conversation()
	if err != nil {
		return Outcome{}, err
	}
	ctrl.SetTier(true)
	return Outcome{Message: "RK AI Pro enabled. Image generation unlocked."}, nil
}

func handleStandard(ctx context.Context, env *Context, args []string) (Outcome, error) {
	ctrl, err := env.App.Conversation()
	if err != nil {
		return Outcome{}, err
	}
	ctrl.SetTier(false)
	return Outcome{Message: "Switched to the Standard tier."}, nil
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func handleClear(ctx context.Context, env *Context, args []string) (Outcome, error) {
	ctrl, err := env.App.Conversation()
	if err != nil {
		return Outcome{}, err
	}
	if err := ctrl.ClearTranscript(ctx); err != nil {
		// The in-memory transcript is already empty.
		return Outcome{Message: "Chat history cleared (not saved: " + err.Error() + ").", Refresh: true}, nil
	}
	return Outcome{Message: "Chat history cleared.", Refresh: true}, nil
}

func handleHistory(ctx context.Context, env *Context, args []string) (Outcome, error) {
	count := DefaultHistoryCount
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return Outcome{}, &ValidationError{
				Command:  ":history",
				Arg:      "count",
				Message:  "invalid value",
				Got:      args[0],
				Expected: "a positive number",
			}
		}
		count = n
	}

	turns, err := env.App.Transcript()
	if err != nil {
		return Outcome{}, err
	}
	if len(turns) == 0 {
		return Outcome{Message: "No messages yet."}, nil
	}

	start := 0
	if len(turns) > count {
		start = len(turns) - count
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d of %d messages:\n", len(turns)-start, len(turns))
	for i, t := range turns[start:] {
		fmt.Fprintf(&b, "  %3d  [%s] %s: %s\n",
			start+i+1,
			t.Timestamp.Local().Format("Jan 2 15:04"),
			t.Role.DisplayName(),
			t.Preview(60))
	}
	return Outcome{Message: strings.TrimRight(b.String(), "\n")}, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// exportTargets lists the :export destinations.
const exportTargets = "mail, clip, file"

func handleExport(ctx context.Context, env *Context, args []string) (Outcome, error) {
	target := "mail"
	if len(args) > 0 {
		target = strings.ToLower(args[0])
	}

	turns, err := env.App.Transcript()
	if err != nil {
		return Outcome{}, err
	}
	if len(turns) == 0 {
		return Outcome{Message: "Nothing to export yet."}, nil
	}

	switch target {
	case "mail":
		uri := export.MailtoURI(export.DigestSubject, export.BuildDigest(turns))
		if err := env.Open(uri); err != nil {
			return Outcome{}, fmt.Errorf("open mail composer: %w", err)
		}
		return Outcome{Message: "Opened the mail composer."}, nil

	case "clip":
		if err := env.Copy(export.BuildDigest(turns)); err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: fmt.Sprintf("Copied %d messages to the clipboard.", len(turns))}, nil

	case "file":
		cfg := env.config()
		opts := &export.Options{
			OutputDir:         cfg.Export.OutputDir,
			IncludeMetadata:   cfg.Export.IncludeMetadata,
			IncludeTimestamps: true,
		}
		exporter, err := export.ExporterFor(cfg.Export.Format, opts)
		if err != nil {
			return Outcome{}, err
		}
		path, err := export.ExportToFile(turns, exporter, opts)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: "Exported to " + path}, nil

	default:
		return Outcome{}, &ValidationError{
			Command:  ":export",
			Arg:      "target",
			Message:  "invalid value",
			Got:      target,
			Expected: exportTargets,
		}
	}
}

func handleSaveImage(ctx context.Context, env *Context, args []string) (Outcome, error) {
	turn, ok, err := env.App.LastImage()
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, ErrNoImage
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if dir := env.config().Export.ImageDir; dir != "" {
		path = filepath.Join(util.ExpandHome(dir), export.DefaultImageName)
	}

	saved, err := export.SaveImage(turn.Content, path)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: "Image saved to " + saved}, nil
}

// =============================================================================
// SESSION
// =============================================================================

func handleStatus(ctx context.Context, env *Context, args []string) (Outcome, error) {
	ctrl, err := env.App.Conversation()
	if err != nil {
		return Outcome{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tier:     %s\n", ctrl.Tier())
	if gw, ok := env.App.Gateway.(*gateway.GeminiGateway); ok {
		fmt.Fprintf(&b, "Text:     %s\n", gw.TextModel())
		fmt.Fprintf(&b, "Image:    %s\n", gw.ImageModel())
		if gw.IsConfigured() {
			fmt.Fprintf(&b, "API key:  %s\n", gw.KeyFingerprint())
		} else {
			b.WriteString("API key:  not set (GEMINI_API_KEY)\n")
		}
	}
	if since := env.App.Gate.UnlockedSince(); !since.IsZero() {
		fmt.Fprintf(&b, "Session:  unlocked at %s\n", since.Local().Format("15:04"))
	}
	report := env.App.LoadReport()
	fmt.Fprintf(&b, "Storage:  %s\n", report.Slot)
	fmt.Fprintf(&b, "Messages: %d", env.App.Store.Len())
	if ctrl.Tier() == conversation.Standard {
		b.WriteString("\n\nType :pro to unlock image generation.")
	}
	return Outcome{Message: b.String()}, nil
}

func handleLock(ctx context.Context, env *Context, args []string) (Outcome, error) {
	env.App.Lock()
	return Outcome{Message: "Session locked.", Locked: true}, nil
}

func handleQuit(ctx context.Context, env *Context, args []string) (Outcome, error) {
	return Outcome{Message: "Goodbye.", Quit: true}, nil
}
