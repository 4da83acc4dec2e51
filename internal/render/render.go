// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant markdown into styled terminal output.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Styles accepted by NewRenderer.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// ValidStyle reports whether s is an accepted style name.
func ValidStyle(s string) bool {
	switch s {
	case StyleAuto, StyleDark, StyleLight, StyleNoTTY:
		return true
	}
	return false
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer renders markdown with glamour. A glamour renderer is built lazily
// per wrap width. Safe for concurrent use.
type Renderer struct {
	mu     sync.Mutex
	style  string
	width  int
	term   *glamour.TermRenderer
	broken bool
}

// NewRenderer creates a renderer for style wrapped at width columns.
func NewRenderer(style string, width int) *Renderer {
	if !ValidStyle(style) {
		style = StyleAuto
	}
	return &Renderer{style: style, width: width}
}

// SetWidth changes the wrap width; the next Render rebuilds the renderer.
func (r *Renderer) SetWidth(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width != r.width {
		r.width = width
		r.term = nil
		r.broken = false
	}
}

// SetStyle changes the style; the next Render rebuilds the renderer.
func (r *Renderer) SetStyle(style string) {
	if !ValidStyle(style) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if style != r.style {
		r.style = style
		r.term = nil
		r.broken = false
	}
}

// Style returns the current style name.
func (r *Renderer) Style() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.style
}

// Render renders content, closing an unterminated code fence first so a
// partially streamed message still renders. Returns content unchanged if
// rendering fails.
func (r *Renderer) Render(content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.term == nil && !r.broken {
		term, err := glamour.NewTermRenderer(r.options()...)
		if err != nil {
			r.broken = true
		} else {
			r.term = term
		}
	}
	if r.term == nil {
		return content
	}

	rendered, err := r.term.Render(CloseOpenFence(content))
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

func (r *Renderer) options() []glamour.TermRendererOption {
	opts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if r.style == StyleAuto {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(r.style))
	}
	if r.width > 0 {
		opts = append(opts, glamour.WithWordWrap(r.width))
	}
	return opts
}

// =============================================================================
// HELPERS
// =============================================================================

// CloseOpenFence appends a closing fence when content ends inside a fenced
// code block.
func CloseOpenFence(content string) string {
	var open string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) > 3 {
			continue
		}
		fence := fenceMarker(trimmed)
		if fence == "" {
			continue
		}
		switch {
		case open == "":
			open = fence
		case strings.HasPrefix(fence, open) && strings.TrimSpace(trimmed[len(fence):]) == "":
			open = ""
		}
	}
	if open == "" {
		return content
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + open
}

// fenceMarker returns the run of ``` or ~~~ that starts line, or "".
func fenceMarker(line string) string {
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return ""
	}
	ch := line[0]
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	if n < 3 {
		return ""
	}
	return line[:n]
}
