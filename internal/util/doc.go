// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the terminal front ends.
//
// String Utilities:
//   - TruncateWidth, StringWidth: display-width aware truncation for
//     sidebar entries and headers (CJK and emoji count as two columns)
//   - TruncateRunes: rune-safe truncation with ellipsis
//   - FirstLine: first non-blank line of a message
//
// File Operations:
//   - AtomicWriteFile: crash-safe writes for config files and exports
package util
