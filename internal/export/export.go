// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides thread export functionality for petalmind.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/petalmind/internal/model"
	"github.com/jeranaias/petalmind/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for thread exporters.
type Exporter interface {
	// Export converts a thread to the target format and returns the content.
	Export(thread *model.Thread) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrNilThread is returned when exporting a nil thread.
var ErrNilThread = errors.New("thread is nil")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata includes the front matter and thread details.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForPath returns the exporter matching the extension of path.
func ForPath(path string, opts *Options) (Exporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownExporter(opts), nil
	case ".json":
		return NewJSONExporter(opts), nil
	case ".yaml", ".yml":
		return NewYAMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use .md, .json or .yaml)", filepath.Ext(path))
	}
}

// ToFile exports thread to path; the extension picks the format.
func ToFile(thread *model.Thread, path string, opts *Options) (string, error) {
	exporter, err := ForPath(path, opts)
	if err != nil {
		return "", err
	}
	return write(thread, exporter, path)
}

// ToDir exports thread into dir with a generated file name.
func ToDir(thread *model.Thread, dir string, exporter Exporter) (string, error) {
	if thread == nil {
		return "", ErrNilThread
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	filename := fmt.Sprintf("petalmind_%s_%s%s",
		sanitizeFilename(thread.GetTitle()),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	return write(thread, exporter, filepath.Join(dir, filename))
}

func write(thread *model.Thread, exporter Exporter, path string) (string, error) {
	content, err := exporter.Export(thread)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 40 {
		runes = runes[:40]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "thread"
	}
	return string(result)
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
