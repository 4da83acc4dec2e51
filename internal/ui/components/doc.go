// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable pieces of the PetalMind chat screen.

  - Header (header.go): brand, signed-in identity, chat endpoint
  - Sidebar (sidebar.go): thread list with the current thread highlighted
  - StatusBar (statusbar.go): streaming indicator and key hints
  - ToastManager (toast.go): auto-dismissing notifications stacked in the
    bottom-right corner

Components are plain structs rendered with a styles.Theme; the chat model
owns them and feeds them state on every View.
*/
package components
