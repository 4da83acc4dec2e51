// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for petalmind.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation. It also owns
// logger setup and the config file watcher.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Chat endpoint, stream format, timeout and token
//   - SessionConfig: Auth service URL or static user name
//   - UIConfig: Markdown style, wrap width, sidebar
//   - Watcher: Reloads the config file on change
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PETALMIND_*), including those from .env
//   - ~/.petalmind/config.toml
//   - ~/.petalmind/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if cfg == nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	client := chatapi.NewClientWithConfig(&chatapi.ClientConfig{
//	    BaseURL: cfg.API.BaseURL,
//	    Timeout: cfg.API.Timeout(),
//	})
package config
