// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides thread export functionality for petalmind.
//
// # Key Types
//
//   - Exporter: Converts a thread snapshot to bytes in one format
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - Markdown: Human-readable, one section per message
//   - JSON: Machine-readable with ids, timestamps and feedback
//   - YAML: Same data as JSON
//
// # Usage
//
// Export to a file whose extension picks the format:
//
//	path, err := export.ToFile(thread, "recursion.md", nil)
//
// Export into a directory with a generated name:
//
//	path, err := export.ToDir(thread, ".", export.NewMarkdownExporter(nil))
package export
