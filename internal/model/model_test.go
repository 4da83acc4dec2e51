// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_AppendWhileStreaming(t *testing.T) {
	msg := NewAssistantPlaceholder()

	for _, frag := range []string{"Hel", "lo", " world"} {
		if !msg.Append(frag) {
			t.Fatalf("Append(%q) rejected on streaming message", frag)
		}
	}

	if msg.Content != "Hello world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello world")
	}
	if msg.Version != 3 {
		t.Errorf("Version = %d, want 3", msg.Version)
	}
}

func TestMessage_SealedIsImmutable(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.Append("done")
	msg.Seal()

	if msg.Append(" more") {
		t.Error("Append should be rejected after Seal")
	}
	if msg.Content != "done" {
		t.Errorf("Content = %q, want %q", msg.Content, "done")
	}
}

func TestMessage_EmptyFragmentKeepsVersion(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.Append("")
	if msg.Version != 0 {
		t.Errorf("Version = %d, want 0", msg.Version)
	}
}

func TestMessage_SetFeedback(t *testing.T) {
	tests := []struct {
		name  string
		steps []Feedback
		want  Feedback
	}{
		{"like", []Feedback{FeedbackLike}, FeedbackLike},
		{"dislike", []Feedback{FeedbackDislike}, FeedbackDislike},
		{"like toggles off", []Feedback{FeedbackLike, FeedbackLike}, FeedbackNone},
		{"dislike replaces like", []Feedback{FeedbackLike, FeedbackDislike}, FeedbackDislike},
		{"clear", []Feedback{FeedbackDislike, FeedbackNone}, FeedbackNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := NewMessage(RoleAssistant, "answer")
			for _, f := range tc.steps {
				msg.SetFeedback(f)
			}
			if got := msg.Feedback(); got != tc.want {
				t.Errorf("Feedback() = %v, want %v", got, tc.want)
			}
			if msg.Liked && msg.Disliked {
				t.Error("Liked and Disliked must be mutually exclusive")
			}
		})
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("  héllo wörld, this is long  ")
	if got := msg.Preview(8); got != "héllo..." {
		t.Errorf("Preview(8) = %q, want %q", got, "héllo...")
	}
	if got := msg.Preview(100); got != "héllo wörld, this is long" {
		t.Errorf("Preview(100) = %q", got)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

// =============================================================================
// THREAD TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Explain recursion", "Explain recursion"},
		{"exact", strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{"long", strings.Repeat("b", 55), strings.Repeat("b", 40)},
		{"multibyte", strings.Repeat("é", 45), strings.Repeat("é", 40)},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.in); got != tc.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestThread_History(t *testing.T) {
	th := NewThread("hi")
	th.AddMessage(NewUserMessage("hi"))
	th.AddMessage(NewMessage(RoleAssistant, "hello"))

	hist := th.History()
	if len(hist) != 2 {
		t.Fatalf("len(History()) = %d, want 2", len(hist))
	}
	if hist[0] != (WireMessage{Role: RoleUser, Content: "hi"}) {
		t.Errorf("hist[0] = %+v", hist[0])
	}
	if hist[1] != (WireMessage{Role: RoleAssistant, Content: "hello"}) {
		t.Errorf("hist[1] = %+v", hist[1])
	}
}

func TestThread_CloneIsDeep(t *testing.T) {
	th := NewThread("hi")
	reply := NewAssistantPlaceholder()
	th.AddMessage(reply)

	clone := th.Clone()
	reply.Append("changed")

	if clone.Messages[0].Content != "" {
		t.Errorf("clone shares message storage: %q", clone.Messages[0].Content)
	}
}

func TestThread_GetTitleDefault(t *testing.T) {
	th := &Thread{}
	if th.GetTitle() != DefaultTitle {
		t.Errorf("GetTitle() = %q, want %q", th.GetTitle(), DefaultTitle)
	}
	if NewThread("x").LastAssistantMessage() != nil {
		t.Error("LastAssistantMessage() on empty thread should be nil")
	}
}
