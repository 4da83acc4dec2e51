// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jeranaias/petalmind/internal/assembler"
	"github.com/jeranaias/petalmind/internal/chatapi"
	"github.com/jeranaias/petalmind/internal/config"
	"github.com/jeranaias/petalmind/internal/metrics"
	"github.com/jeranaias/petalmind/internal/session"
	"github.com/jeranaias/petalmind/internal/store"
)

// sessionTimeout bounds the identity lookup at startup.
const sessionTimeout = 5 * time.Second

// =============================================================================
// CONFIG
// =============================================================================

// loadConfig loads the configuration and applies flag overrides. A nil
// config means startup must fail; a config returned together with an error
// fell back to defaults and the error is only worth a warning.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg     *config.Config
		loadErr error
	)
	if flags.configPath != "" {
		c, err := config.LoadFromPath(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg, loadErr = config.Load()
		if cfg == nil {
			return nil, loadErr
		}
	}

	applyFlags(cfg, flags)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	config.SetGlobal(cfg)
	return cfg, loadErr
}

// applyFlags copies command-line overrides onto cfg.
func applyFlags(cfg *config.Config, flags *globalFlags) {
	if flags.baseURL != "" {
		cfg.API.BaseURL = flags.baseURL
	}
	if flags.format != "" {
		cfg.API.StreamFormat = flags.format
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
}

// =============================================================================
// APP
// =============================================================================

// app holds the collaborators shared by every front end.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *chatapi.Client
	format   chatapi.Format
	provider session.Provider
	metrics  *metrics.Metrics
	store    *store.Store

	closeLog    func() error
	stopMetrics context.CancelFunc
}

// newApp loads configuration and starts the store. console receives
// human-readable logs; nil keeps logs in the log file only.
func newApp(ctx context.Context, flags *globalFlags, console io.Writer) (*app, error) {
	cfg, loadErr := loadConfig(flags)
	if cfg == nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	logger, closeLog := config.SetupLogger(cfg.Log, console, config.ParseLevel(cfg.Log.Level))
	if loadErr != nil {
		logger.Warn("config file ignored, using defaults", "error", loadErr)
	}

	format, err := chatapi.ParseFormat(cfg.API.StreamFormat)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{
		BaseURL:  cfg.API.BaseURL,
		Endpoint: cfg.API.Endpoint,
		Timeout:  cfg.API.Timeout(),
		Token:    cfg.API.Token,
	})

	var provider session.Provider
	if cfg.Session.AuthURL != "" {
		provider = session.NewHTTPProvider(cfg.Session.AuthURL, cfg.API.Token, cfg.API.Timeout())
	} else {
		provider = session.NewStaticProvider(cfg.Session.UserName, cfg.API.Token)
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		format:      format,
		provider:    provider,
		metrics:     metrics.New(),
		store:       store.New(logger),
		closeLog:    closeLog,
		stopMetrics: func() {},
	}

	if cfg.Metrics.Addr != "" {
		mctx, cancel := context.WithCancel(ctx)
		a.stopMetrics = cancel
		go func() {
			if err := a.metrics.Serve(mctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "error", err, "addr", cfg.Metrics.Addr)
			}
		}()
	}

	logger.Debug("petalmind started",
		"version", Version,
		"endpoint", client.URL(),
		"format", string(format))
	return a, nil
}

// identity resolves the signed-in user. Failures fall back to the guest
// identity; refresh forces a refetch.
func (a *app) identity(ctx context.Context, refresh bool) *session.Identity {
	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	var (
		id  *session.Identity
		err error
	)
	if refresh {
		id, err = a.provider.Refresh(ctx)
	} else {
		id, err = a.provider.Current(ctx)
	}
	if err != nil {
		a.logger.Warn("session lookup failed", "error", err)
		return nil
	}
	if id.Token != "" {
		a.client.SetToken(id.Token)
	}
	return id
}

// newAssembler wires an assembler to the shared store and client.
func (a *app) newAssembler(n assembler.Notifier, v assembler.Viewer, onFragment func(threadID, messageID, fragment string)) *assembler.Assembler {
	return assembler.New(assembler.Config{
		Store:      a.store,
		Streamer:   a.client,
		Format:     a.format,
		Notifier:   n,
		Viewer:     v,
		Metrics:    a.metrics,
		Logger:     a.logger,
		OnFragment: onFragment,
	})
}

// Close stops the store and metrics server and closes the log file.
func (a *app) Close() {
	a.stopMetrics()
	a.store.Close()
	_ = a.closeLog()
}
