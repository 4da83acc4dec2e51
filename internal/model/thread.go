// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat threads and messages.
package model

import (
	"time"
)

// TitleLength is the number of characters of the first user message used as
// a thread title.
const TitleLength = 40

// DefaultTitle is shown for threads without a user message.
const DefaultTitle = "New chat"

// =============================================================================
// THREAD TYPE
// =============================================================================

// Thread holds one conversation: an ordered list of messages plus metadata.
type Thread struct {
	// Identity
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`

	// Messages
	Messages       []*Message `json:"messages" yaml:"messages"`
	MessagesLoaded bool       `json:"messages_loaded" yaml:"messages_loaded"`
}

// NewThread creates a thread whose title is derived from the first user
// message.
func NewThread(firstUserText string) *Thread {
	return &Thread{
		ID:             NewID(),
		Title:          DeriveTitle(firstUserText),
		CreatedAt:      time.Now(),
		Messages:       make([]*Message, 0, 2),
		MessagesLoaded: true,
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the thread.
func (t *Thread) AddMessage(msg *Message) {
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()
	if t.Title == "" && msg.Role == RoleUser {
		t.Title = DeriveTitle(msg.Content)
	}
}

// MessageByID returns a message by its ID, or nil.
func (t *Thread) MessageByID(id string) *Message {
	for _, msg := range t.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if empty.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// LastAssistantMessage returns the most recent assistant message, or nil.
func (t *Thread) LastAssistantMessage() *Message {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAssistant {
			return t.Messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (t *Thread) MessageCount() int {
	return len(t.Messages)
}

// History returns the role/content pairs of every message, in order.
func (t *Thread) History() []WireMessage {
	out := make([]WireMessage, 0, len(t.Messages))
	for _, msg := range t.Messages {
		out = append(out, msg.Wire())
	}
	return out
}

// GetTitle returns the thread title or a default.
func (t *Thread) GetTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return DefaultTitle
}

// Clone creates a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	clone := *t
	clone.Messages = make([]*Message, len(t.Messages))
	for i, msg := range t.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return &clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// DeriveTitle returns the first TitleLength characters of text.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > TitleLength {
		runes = runes[:TitleLength]
	}
	return string(runes)
}
