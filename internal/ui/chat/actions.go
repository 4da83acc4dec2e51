// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/petalmind/internal/export"
	"github.com/jeranaias/petalmind/internal/model"
	"github.com/jeranaias/petalmind/internal/ui/components"
	"github.com/jeranaias/petalmind/internal/util"
)

// =============================================================================
// SUBMIT
// =============================================================================

// submit hands the input to the sender. Blank input is ignored and input
// typed while a reply streams stays in the box.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if trimmedEmpty(text) {
		return m, nil
	}
	if m.streaming || m.sender.Busy() {
		cmd := m.toast("Wait for PetalMind to finish replying", components.ToastKindWarning)
		return m, cmd
	}

	m.input.Reset()
	m.streaming = true
	m.status.Streaming = true
	m.status.Spinner = m.spinner.View()

	sender, ctx := m.sender, m.ctx
	send := func() tea.Msg {
		return streamDoneMsg{err: sender.Send(ctx, text)}
	}
	return m, tea.Batch(m.spinner.Tick, send)
}

// =============================================================================
// THREADS
// =============================================================================

// newChat clears the current thread; the next send starts a new one.
func (m Model) newChat() (tea.Model, tea.Cmd) {
	if err := m.store.NewThread(); err != nil {
		m.logger.Warn("new chat failed", "error", err)
		return m, nil
	}
	m.refresh()
	return m, nil
}

// switchThread moves the current thread by delta in creation order. With no
// current thread, moving back selects the newest.
func (m Model) switchThread(delta int) (tea.Model, tea.Cmd) {
	threads := m.store.Threads()
	if len(threads) == 0 {
		return m, nil
	}

	idx := len(threads)
	currentID := m.store.CurrentID()
	for i, t := range threads {
		if t.ID == currentID {
			idx = i
			break
		}
	}

	next := idx + delta
	if next < 0 {
		next = 0
	}
	if next >= len(threads) {
		next = len(threads) - 1
	}
	if threads[next].ID == currentID {
		return m, nil
	}

	if err := m.store.SelectThread(threads[next].ID); err != nil {
		m.logger.Warn("switch thread failed", "error", err)
		return m, nil
	}
	m.refresh()
	return m, nil
}

// =============================================================================
// REPLY ACTIONS
// =============================================================================

// lastReply returns the current thread and its last sealed assistant message.
func (m *Model) lastReply() (*model.Thread, *model.Message) {
	current := m.store.Current()
	if current == nil {
		return nil, nil
	}
	msg := current.LastAssistantMessage()
	if msg == nil || msg.Streaming {
		return current, nil
	}
	return current, msg
}

// rateLast toggles like or dislike on the last reply.
func (m Model) rateLast(like bool) (tea.Model, tea.Cmd) {
	thread, msg := m.lastReply()
	if msg == nil {
		cmd := m.toast("No reply to rate yet", components.ToastKindStatus)
		return m, cmd
	}

	fb := model.FeedbackDislike
	if like {
		fb = model.FeedbackLike
	}
	if err := m.store.SetFeedback(thread.ID, msg.ID, fb); err != nil {
		m.logger.Warn("feedback failed", "error", err)
		return m, nil
	}
	m.refresh()
	return m, nil
}

// copyLastResponse copies the last reply to the clipboard.
func (m Model) copyLastResponse() (tea.Model, tea.Cmd) {
	_, msg := m.lastReply()
	if msg == nil || msg.IsEmpty() {
		cmd := m.toast("No reply to copy", components.ToastKindStatus)
		return m, cmd
	}

	if err := m.clipboard(msg.Content); err != nil {
		m.logger.Warn("clipboard write failed", "error", err)
		cmd := m.toast("Failed to copy to clipboard", components.ToastKindError)
		return m, cmd
	}

	n := util.RuneLen(msg.Content)
	size := fmt.Sprintf("%d chars", n)
	if n >= 1000 {
		size = fmt.Sprintf("%.1fK chars", float64(n)/1000)
	}
	cmd := m.toast("Copied reply ("+size+")", components.ToastKindSuccess)
	return m, cmd
}

// exportCurrent writes the current thread to the export directory as
// Markdown.
func (m Model) exportCurrent() (tea.Model, tea.Cmd) {
	current := m.store.Current()
	if current == nil || current.MessageCount() == 0 {
		cmd := m.toast("Nothing to export", components.ToastKindStatus)
		return m, cmd
	}

	path, err := export.ToDir(current, m.exportDir, export.NewMarkdownExporter(nil))
	if err != nil {
		m.logger.Warn("export failed", "error", err)
		cmd := m.toast("Export failed: "+err.Error(), components.ToastKindError)
		return m, cmd
	}
	m.logger.Info("thread exported", "thread", current.ID, "path", path)
	cmd := m.toast("Exported to "+path, components.ToastKindSuccess)
	return m, cmd
}
