// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the streaming chat endpoint.
//
// The client posts the conversation history as {"messages": [...],
// "stream": true} and hands back the open response body. A FragmentReader
// turns that body into text fragments for one of three payload formats:
//
//   - text: raw UTF-8 chunks, decoded with state carried across chunks
//   - ndjson: one JSON object per line carrying message.content
//   - sse: server-sent events with choices[].delta.content, ending at [DONE]
//
// # Errors
//
// Every failure is a *ClientError whose Type is one of connection, timeout,
// status (with the HTTP code and a body excerpt) or no_body. Use
// ErrorTypeOf, IsTimeout and IsConnection to inspect them.
package chatapi
