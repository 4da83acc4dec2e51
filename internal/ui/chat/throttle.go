// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
)

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// FrameInterval is the minimum time between redraws (~30fps).
const FrameInterval = 33 * time.Millisecond

// renderThrottle caps redraws. A change inside the current frame is
// deferred to one trailing tick, so the last fragment is always drawn.
type renderThrottle struct {
	limiter *rate.Limiter
	dirty   bool
	pending bool
}

func newRenderThrottle() *renderThrottle {
	return &renderThrottle{limiter: rate.NewLimiter(rate.Every(FrameInterval), 1)}
}

// mark records a change at now. It reports whether to redraw immediately;
// otherwise it may return the trailing tick command.
func (t *renderThrottle) mark(now time.Time) (bool, tea.Cmd) {
	if !t.pending && t.limiter.AllowN(now, 1) {
		t.dirty = false
		return true, nil
	}
	t.dirty = true
	if t.pending {
		return false, nil
	}
	t.pending = true
	return false, tea.Tick(FrameInterval, func(tm time.Time) tea.Msg {
		return renderTickMsg{Time: tm}
	})
}

// tick handles the trailing frame and reports whether to redraw.
func (t *renderThrottle) tick(now time.Time) bool {
	t.pending = false
	if !t.dirty {
		return false
	}
	t.dirty = false
	t.limiter.AllowN(now, 1)
	return true
}
