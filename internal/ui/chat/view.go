// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/petalmind/internal/model"
	"github.com/jeranaias/petalmind/internal/ui/components"
	"github.com/jeranaias/petalmind/internal/ui/styles"
)

// streamCursor trails a reply while it streams.
const streamCursor = "▍"

// renderedMessage caches a message's rendered bubble.
type renderedMessage struct {
	version   uint64
	streaming bool
	out       string
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), body)
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		body = overlayBottomRight(body, components.RenderToastStack(m.theme, toasts, m.width), m.width)
	}

	input := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		body,
		input,
		m.status.View(),
	)
}

// contentWidth is the wrap width inside a message bubble.
func (m *Model) contentWidth() int {
	// bubble margin 4, border 2, padding 2
	w := m.viewport.Width - 8
	if m.ui.WordWrap > 0 && m.ui.WordWrap < w {
		w = m.ui.WordWrap
	}
	if w < 10 {
		w = 10
	}
	return w
}

// renderThread renders every message of thread, reusing cached bubbles for
// messages whose version has not changed.
func (m *Model) renderThread(thread *model.Thread) string {
	if thread == nil || len(thread.Messages) == 0 {
		return m.theme.EmptyState.Render("Ask PetalMind anything.\nEnter sends, Alt+Enter adds a line.")
	}

	parts := make([]string, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		if c, ok := m.cache[msg.ID]; ok && c.version == msg.Version && c.streaming == msg.Streaming {
			parts = append(parts, c.out)
			continue
		}
		out := m.renderMessage(msg)
		m.cache[msg.ID] = renderedMessage{version: msg.Version, streaming: msg.Streaming, out: out}
		parts = append(parts, out)
	}
	return strings.Join(parts, "\n")
}

// renderMessage renders one message bubble.
func (m *Model) renderMessage(msg *model.Message) string {
	label := m.theme.RoleLabel.Render(msg.Role.DisplayName()) + " " +
		m.theme.Timestamp.Render(formatTimestamp(msg.Timestamp))
	switch msg.Feedback() {
	case model.FeedbackLike:
		label += " " + m.theme.Liked.Render(styles.StatusIndicators.Liked)
	case model.FeedbackDislike:
		label += " " + m.theme.Disliked.Render(styles.StatusIndicators.Disliked)
	}

	width := m.contentWidth()
	var content string
	var bubble lipgloss.Style
	if msg.Role == model.RoleUser {
		content = lipgloss.NewStyle().Width(width).Render(msg.Content)
		bubble = m.theme.UserBubble
	} else {
		switch {
		case msg.Streaming && msg.IsEmpty():
			content = m.theme.Timestamp.Render("thinking…")
		case msg.IsEmpty():
			content = m.theme.Timestamp.Render("(no response)")
		default:
			content = m.renderer.Render(msg.Content)
		}
		if msg.Streaming {
			content += m.theme.Cursor.Render(streamCursor)
		}
		bubble = m.theme.AssistantBubble
	}

	return bubble.Width(width + 2).Render(label + "\n" + content)
}

// formatTimestamp shows the time for today and the date otherwise.
func formatTimestamp(t time.Time) string {
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if now.Sub(t) < 7*24*time.Hour {
		return t.Format("Mon 15:04")
	}
	return t.Format("Jan 2 15:04")
}

// overlayBottomRight draws overlay over the bottom-right corner of base.
func overlayBottomRight(base, overlay string, width int) string {
	baseLines := strings.Split(base, "\n")
	overLines := strings.Split(overlay, "\n")
	if len(overLines) > len(baseLines) {
		overLines = overLines[len(overLines)-len(baseLines):]
	}

	start := len(baseLines) - len(overLines)
	for i, line := range overLines {
		pad := width - lipgloss.Width(line)
		if pad < 0 {
			pad = 0
		}
		left := ansi.Truncate(baseLines[start+i], pad, "")
		if fill := pad - lipgloss.Width(left); fill > 0 {
			left += strings.Repeat(" ", fill)
		}
		baseLines[start+i] = left + line
	}
	return strings.Join(baseLines, "\n")
}
