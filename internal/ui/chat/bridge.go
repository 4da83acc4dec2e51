// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/petalmind/internal/config"
)

// Bridge forwards callbacks from other goroutines into the running program.
// It satisfies the assembler's Notifier and Viewer. Messages sent before
// SetProgram are dropped.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

// NewBridge creates an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// SetProgram attaches the program that receives forwarded messages.
func (b *Bridge) SetProgram(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Notify shows message as an error toast.
func (b *Bridge) Notify(message string) {
	b.send(NotifyMsg{Message: message})
}

// ScrollToBottom scrolls the chat viewport to the newest content.
func (b *Bridge) ScrollToBottom() {
	b.send(ScrollBottomMsg{})
}

// ConfigChanged applies a reloaded configuration.
func (b *Bridge) ConfigChanged(cfg *config.Config) {
	b.send(ConfigChangedMsg{Config: cfg})
}

// Identity updates the header's user name.
func (b *Bridge) Identity(name string) {
	b.send(IdentityMsg{Name: name})
}
