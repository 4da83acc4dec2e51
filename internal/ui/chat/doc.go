// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea model for the PetalMind chat screen.

The model never mutates conversation state itself. Submissions go to a
Sender (the streaming assembler) on a command goroutine; every change to
the conversation store arrives back as a store event, which marks the view
dirty. Redraws are capped at roughly 30 frames per second by a rate limiter
with a trailing tick, so a fast stream costs one render per frame instead
of one per fragment.

Callbacks that originate outside the program (toasts from the assembler,
scroll requests, config reloads) reach the model through a Bridge, which
forwards them with tea.Program.Send.

# Key Bindings

	Enter        send
	Alt+Enter    newline
	Ctrl+N       new chat
	Ctrl+Up/Down switch thread
	Ctrl+L/K     like / dislike the last reply
	Ctrl+Y       copy the last reply
	Ctrl+E       export the current thread as Markdown
	PgUp/PgDn    scroll
	Ctrl+C       quit
*/
package chat
