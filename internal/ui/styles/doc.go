// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the PetalMind TUI.

All colors use Lip Gloss AdaptiveColor so light and dark terminals both get
readable output. Theme bundles the styles for the chat screen and records
the detected terminal color profile.

# Usage

	theme := styles.NewTheme()
	theme.SetSize(width, height)
	bubble := theme.UserBubble.Render(text)

	if theme.GetLayoutMode() == styles.LayoutNarrow {
		// hide the sidebar
	}
*/
package styles
