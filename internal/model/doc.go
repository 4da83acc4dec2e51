// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat threads and messages.
//
// This package defines the core domain types shared by the conversation
// store, the streaming assembler and the UI.
//
// # Key Types
//
//   - Thread: One conversation with ordered messages and a derived title
//   - Message: Single message with role, content, timestamp and feedback flags
//   - WireMessage: The role/content pair sent to the chat endpoint
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Create a thread and grow an assistant reply:
//
//	thread := model.NewThread("Explain recursion")
//	thread.AddMessage(model.NewUserMessage("Explain recursion"))
//	reply := model.NewAssistantPlaceholder()
//	thread.AddMessage(reply)
//	reply.Append("Recursion is ...")
//	reply.Seal()
package model
