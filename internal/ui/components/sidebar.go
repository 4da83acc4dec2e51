// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/petalmind/internal/ui/styles"
	"github.com/jeranaias/petalmind/internal/util"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// SidebarWidth is the total sidebar width including its border.
const SidebarWidth = 28

// ThreadEntry is one row of the sidebar.
type ThreadEntry struct {
	ID       string
	Title    string
	Messages int
}

// Sidebar lists threads in creation order.
type Sidebar struct {
	Threads   []ThreadEntry
	CurrentID string
	Height    int
	theme     *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme}
}

// View renders the thread list. When there are more threads than rows, the
// window keeps the current thread visible.
func (s *Sidebar) View() string {
	inner := SidebarWidth - 2
	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	if len(s.Threads) == 0 {
		b.WriteString(s.theme.ThreadCount.Render(util.TruncateWidth("No chats yet", inner)))
	}

	rows := s.Height - 2
	if rows < 1 {
		rows = len(s.Threads)
	}
	start := 0
	if cur := s.currentIndex(); cur >= rows {
		start = cur - rows + 1
	}
	end := start + rows
	if end > len(s.Threads) {
		end = len(s.Threads)
	}

	for i := start; i < end; i++ {
		t := s.Threads[i]
		count := fmt.Sprintf(" %d", t.Messages)
		title := util.TruncateWidth(util.FirstLine(t.Title), inner-util.StringWidth(count))
		row := util.PadWidth(title, inner-util.StringWidth(count))

		if t.ID == s.CurrentID {
			b.WriteString(s.theme.ThreadSelected.Render(row + count))
		} else {
			b.WriteString(s.theme.ThreadItem.Render(row) + s.theme.ThreadCount.Render(count))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	// Width covers content plus right padding; the border adds one column.
	style := s.theme.Sidebar.Width(SidebarWidth - 1)
	if s.Height > 0 {
		style = style.Height(s.Height)
	}
	return style.Render(b.String())
}

func (s *Sidebar) currentIndex() int {
	for i, t := range s.Threads {
		if t.ID == s.CurrentID {
			return i
		}
	}
	return -1
}
