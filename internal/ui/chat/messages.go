// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/petalmind/internal/config"
	"github.com/jeranaias/petalmind/internal/store"
)

// =============================================================================
// INTERNAL MESSAGES
// =============================================================================

// storeEventMsg carries one conversation store event.
type storeEventMsg struct {
	event store.Event
}

// renderTickMsg is the trailing frame of the render throttle.
type renderTickMsg struct {
	Time time.Time
}

// streamDoneMsg is returned when a submission has finished streaming.
type streamDoneMsg struct {
	err error
}

// =============================================================================
// EXTERNAL MESSAGES
// =============================================================================

// NotifyMsg shows an error toast.
type NotifyMsg struct {
	Message string
}

// ScrollBottomMsg scrolls the viewport to the newest content.
type ScrollBottomMsg struct{}

// ConfigChangedMsg applies a reloaded configuration's [ui] section.
type ConfigChangedMsg struct {
	Config *config.Config
}

// IdentityMsg updates the name shown in the header.
type IdentityMsg struct {
	Name string
}
