// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/petalmind/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is a key hint shown in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// DefaultShortcuts are the hints shown while idle.
var DefaultShortcuts = []Shortcut{
	{"enter", "send"},
	{"alt+enter", "newline"},
	{"ctrl+n", "new chat"},
	{"ctrl+↑/↓", "switch"},
	{"ctrl+l/k", "like/dislike"},
	{"ctrl+y", "copy"},
	{"ctrl+e", "export"},
	{"ctrl+c", "quit"},
}

// StatusBar shows the streaming indicator on the left and key hints.
type StatusBar struct {
	Width     int
	Streaming bool
	Spinner   string
	theme     *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, Width: 80}
}

// View renders the status bar, dropping hints that do not fit.
func (s *StatusBar) View() string {
	var left string
	if s.Streaming {
		left = s.theme.Spinner.Render(s.Spinner) + " PetalMind is typing"
	}

	used := lipgloss.Width(left)
	if used > 0 {
		used += 3
	}
	var hints []string
	for _, sc := range DefaultShortcuts {
		w := len(sc.Key) + len(sc.Desc) + 3
		if used+w > s.Width-2 {
			break
		}
		used += w
		hints = append(hints, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}

	parts := make([]string, 0, 2)
	if left != "" {
		parts = append(parts, left)
	}
	if len(hints) > 0 {
		parts = append(parts, strings.Join(hints, "  "))
	}
	return s.theme.StatusBar.Width(s.Width).Render(strings.Join(parts, " │ "))
}
