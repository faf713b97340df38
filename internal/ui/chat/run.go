// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rkai/internal/app"
)

// Run shows the chat interface until the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App, opts Options) error {
	m := New(ctx, a, opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	opts.Logger.Debug().Msg("Starting chat interface")
	_, err := p.Run()
	return err
}
