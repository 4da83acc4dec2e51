// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseOpenFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "plain text", "plain text"},
		{"closed fence", "```go\nx := 1\n```", "```go\nx := 1\n```"},
		{"open fence", "```go\nx := 1", "```go\nx := 1\n```"},
		{"open fence trailing newline", "```\nx\n", "```\nx\n```"},
		{"tilde fence", "~~~\nx", "~~~\nx\n~~~"},
		{"longer closer", "````\nx\n`````", "````\nx\n`````"},
		{"mixed markers stay open", "```\n~~~\nx", "```\n~~~\nx\n```"},
		{"indented code ignored", "    ```\nx", "    ```\nx"},
		{"second block open", "```\na\n```\ntext\n```py\nb", "```\na\n```\ntext\n```py\nb\n```"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CloseOpenFence(tc.in))
		})
	}
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(StyleNoTTY, 40)

	out := r.Render("# Title\n\n- one\n- two")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "# Title")
}

func TestRenderer_PartialMarkdown(t *testing.T) {
	r := NewRenderer(StyleNoTTY, 60)

	out := r.Render("Here is code:\n\n```go\nfunc main() {")
	assert.Contains(t, out, "func main()")
}

func TestRenderer_EmptyAndStyles(t *testing.T) {
	r := NewRenderer("bogus", 0)
	assert.Equal(t, StyleAuto, r.Style())
	assert.Equal(t, "  ", r.Render("  "))

	r.SetStyle(StyleLight)
	assert.Equal(t, StyleLight, r.Style())
	r.SetStyle("nope")
	assert.Equal(t, StyleLight, r.Style())

	assert.True(t, ValidStyle(StyleDark))
	assert.False(t, ValidStyle("neon"))
}
