// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/petalmind/internal/config"
	"github.com/jeranaias/petalmind/internal/ui/chat"
)

// configDebounce coalesces editor save bursts into one reload.
const configDebounce = 250 * time.Millisecond

// runTUI runs the full-screen chat until the user quits or ctx is cancelled.
func runTUI(ctx context.Context, flags *globalFlags) error {
	// The TUI owns the terminal, so logs go to the file only.
	a, err := newApp(ctx, flags, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := chat.NewBridge()
	asm := a.newAssembler(bridge, bridge, nil)

	m := chat.New(chat.Options{
		Store:     a.store,
		Sender:    asm,
		Context:   ctx,
		Logger:    a.logger,
		UserName:  a.cfg.Session.UserName,
		Endpoint:  a.client.URL(),
		UI:        a.cfg.UI,
		ExportDir: ".",
	})

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	bridge.SetProgram(p)

	watchConfig(ctx, a, flags, bridge.ConfigChanged)

	go func() {
		if id := a.identity(ctx, true); id != nil {
			bridge.Identity(id.DisplayName())
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run chat UI: %w", err)
	}
	return nil
}

// watchConfig reloads the config file while ctx is alive. Flag overrides
// are re-applied to every reload. Watch failures are logged and leave the
// UI settings fixed.
func watchConfig(ctx context.Context, a *app, flags *globalFlags, onChange func(*config.Config)) {
	path := flags.configPath
	if path == "" {
		if err := config.EnsureConfigDir(); err != nil {
			a.logger.Warn("config watch disabled", "error", err)
			return
		}
		p, err := config.ConfigPathTOML()
		if err != nil {
			a.logger.Warn("config watch disabled", "error", err)
			return
		}
		path = p
	}

	w, err := config.NewWatcher(path, configDebounce, a.logger, onChange)
	if err != nil {
		a.logger.Warn("config watch disabled", "error", err, "path", path)
		return
	}
	w.SetAdjust(func(c *config.Config) { applyFlags(c, flags) })
	go w.Run(ctx)
}
