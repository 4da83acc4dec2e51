// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a config level name to a slog.Level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger creates a logger that writes JSON to the configured log file
// and, when console is non-nil, human-readable text to console.
// Returns the logger and a cleanup function to close the file.
func SetupLogger(cfg LogConfig, console io.Writer, level slog.Level) (*slog.Logger, func() error) {
	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}))
	}

	logFile := cfg.File
	if logFile == "" {
		if p, err := DefaultLogPath(); err == nil {
			logFile = p
		}
	}

	cleanup := func() error { return nil }
	if logFile != "" {
		_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			if console != nil {
				slog.New(handlers[0]).Error("failed to open log file, using console only", "error", err, "file", logFile)
			}
		} else {
			handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
			cleanup = file.Close
		}
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, nil)), cleanup
	case 1:
		return slog.New(handlers[0]), cleanup
	default:
		return slog.New(slogmulti.Fanout(handlers...)), cleanup
	}
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}
