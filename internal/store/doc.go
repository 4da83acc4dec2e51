// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the in-memory conversation store.
//
// A Store owns every thread and message on a single goroutine. Callers
// submit operations that run one at a time on that goroutine, so there is
// exactly one writer and snapshots are always consistent.
//
// # Stale Updates
//
// Operations that name a thread or message which no longer exists, or grow a
// message that has been sealed, change nothing and return ErrThreadNotFound,
// ErrMessageNotFound or ErrMessageSealed. Use IsStale to recognize them.
//
// # Usage
//
//	s := store.New(logger)
//	defer s.Close()
//
//	threadID, history, _ := s.AppendUserMessage("Explain recursion")
//	msgID, _ := s.AppendAssistantPlaceholder(threadID)
//	_ = s.GrowAssistantMessage(threadID, msgID, "Recursion is ")
//	_ = s.SealAssistantMessage(threadID, msgID)
package store
