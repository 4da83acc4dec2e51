// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat threads and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/petalmind/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "PetalMind"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// FEEDBACK
// =============================================================================

// Feedback is the user's rating of an assistant message.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackLike
	FeedbackDislike
)

// String returns the feedback name.
func (f Feedback) String() string {
	switch f {
	case FeedbackLike:
		return "like"
	case FeedbackDislike:
		return "dislike"
	default:
		return "none"
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a thread.
type Message struct {
	// Identity
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Content grows in place while Streaming is true and is frozen afterwards.
	Content string `json:"content" yaml:"content"`

	// Optional attachments and feedback
	ImageURL string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Liked    bool   `json:"liked,omitempty" yaml:"liked,omitempty"`
	Disliked bool   `json:"disliked,omitempty" yaml:"disliked,omitempty"`

	// Streaming state (not exported)
	Streaming bool   `json:"-" yaml:"-"`
	Version   uint64 `json:"-" yaml:"-"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantPlaceholder creates an empty assistant message that is open
// for streaming.
func NewAssistantPlaceholder() *Message {
	msg := NewMessage(RoleAssistant, "")
	msg.Streaming = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Append concatenates a fragment onto a streaming message.
// Returns false if the message is sealed.
func (m *Message) Append(fragment string) bool {
	if !m.Streaming {
		return false
	}
	if fragment == "" {
		return true
	}
	m.Content += fragment
	m.Version++
	return true
}

// Seal ends streaming; the content is immutable afterwards.
func (m *Message) Seal() {
	if m.Streaming {
		m.Streaming = false
		m.Version++
	}
}

// Feedback returns the current feedback state.
func (m *Message) Feedback() Feedback {
	switch {
	case m.Liked:
		return FeedbackLike
	case m.Disliked:
		return FeedbackDislike
	default:
		return FeedbackNone
	}
}

// SetFeedback applies toggle semantics: setting the current value clears it,
// and like/dislike are mutually exclusive.
func (m *Message) SetFeedback(f Feedback) {
	current := m.Feedback()
	m.Liked, m.Disliked = false, false
	if f == current {
		m.Version++
		return
	}
	switch f {
	case FeedbackLike:
		m.Liked = true
	case FeedbackDislike:
		m.Disliked = true
	}
	m.Version++
}

// Preview returns a truncated preview of the message content.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(strings.TrimSpace(m.Content), maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Clone returns a copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// Wire converts the message to the role/content pair sent to the backend.
func (m *Message) Wire() WireMessage {
	return WireMessage{Role: m.Role, Content: m.Content}
}

// =============================================================================
// WIRE TYPE
// =============================================================================

// WireMessage is the role/content pair submitted to the chat endpoint.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewID returns a collision-resistant identifier for threads and messages.
func NewID() string {
	return uuid.NewString()
}
