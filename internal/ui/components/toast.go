// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/petalmind/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	ToastKindStatus ToastKind = iota
	ToastKindError
	ToastKindWarning
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is longer so the message can be read.
const ErrorToastDuration = 8 * time.Second

// MaxToasts is the number of toasts visible at once.
const MaxToasts = 4

// Toast is a non-blocking notification shown in the corner.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// expired reports whether the toast should be dismissed at now.
func (t Toast) expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager manages the toast stack. It is safe for concurrent use so
// notifications can be raised from the streaming goroutine.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	now    func() time.Time
}

// NewToastManager creates a new toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, now: time.Now}
}

// Add pushes a toast and returns its id. The oldest toast is dropped when
// more than MaxToasts are visible.
func (m *ToastManager) Add(message string, kind ToastKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DefaultToastDuration
	if kind == ToastKindError || kind == ToastKindWarning {
		d = ErrorToastDuration
	}
	toast := Toast{
		ID:        m.nextID,
		Message:   message,
		Kind:      kind,
		CreatedAt: m.now(),
		Duration:  d,
	}
	m.nextID++

	m.toasts = append(m.toasts, toast)
	if len(m.toasts) > MaxToasts {
		m.toasts = m.toasts[len(m.toasts)-MaxToasts:]
	}
	return toast.ID
}

// AddError adds an error toast.
func (m *ToastManager) AddError(message string) int {
	return m.Add(message, ToastKindError)
}

// AddSuccess adds a success toast.
func (m *ToastManager) AddSuccess(message string) int {
	return m.Add(message, ToastKindSuccess)
}

// AddStatus adds an informational toast.
func (m *ToastManager) AddStatus(message string) int {
	return m.Add(message, ToastKindStatus)
}

// Dismiss removes a toast by id.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Tick drops expired toasts and reports whether any remain.
func (m *ToastManager) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.expired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return len(m.toasts) > 0
}

// Toasts returns a copy of the visible toasts, oldest first.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg is sent periodically while toasts are visible.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 250ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast.
func RenderToast(theme *styles.Theme, toast Toast, width int, now time.Time) string {
	maxWidth := 60
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 20 {
		maxWidth = 20
	}

	var style lipgloss.Style
	var icon string
	switch toast.Kind {
	case ToastKindError:
		style, icon = theme.ToastError, styles.StatusIndicators.Error
	case ToastKindWarning:
		style, icon = theme.ToastError.BorderForeground(styles.Amber).Foreground(styles.Amber), styles.StatusIndicators.Warning
	case ToastKindSuccess:
		style, icon = theme.ToastSuccess, styles.StatusIndicators.Success
	default:
		style, icon = theme.ToastInfo, styles.StatusIndicators.Info
	}

	body := icon + " " + toast.Message
	if remaining := toast.Duration - now.Sub(toast.CreatedAt); remaining >= time.Second {
		body += theme.Timestamp.Render("  " + strconv.Itoa(int(remaining.Seconds())) + "s")
	}
	return style.Width(maxWidth).Render(body)
}

// RenderToastStack renders toasts stacked vertically, newest at the bottom.
func RenderToastStack(theme *styles.Theme, toasts []Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	now := time.Now()
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, RenderToast(theme, t, width, now))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}
