// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/petalmind/internal/ui/styles"
	"github.com/jeranaias/petalmind/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: brand on the left, identity and endpoint on the
// right.
type Header struct {
	Title    string
	User     string
	Endpoint string
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a new Header component with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "PetalMind",
		User:  "Guest",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header as a single line.
func (h *Header) View() string {
	left := h.theme.HeaderTitle.Render("✿ " + h.Title)

	right := h.User
	if h.Endpoint != "" && h.Width >= 60 {
		right += " @ " + h.Endpoint
	}

	// Two columns of padding from the Header style.
	avail := h.Width - 2 - lipgloss.Width(left) - 2
	right = h.theme.HeaderSubtitle.Render(util.TruncateWidth(right, avail))

	gap := h.Width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return h.theme.Header.Width(h.Width).Render(line)
}
