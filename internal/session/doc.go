// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session resolves the signed-in user from an external auth service.
//
// No authentication happens here. A Provider only reports who is signed in
// and which bearer token to attach to chat requests.
//
// # Key Types
//
//   - Identity: id, name, email, avatar and bearer token
//   - HTTPProvider: GET /api/auth/get-session, cached after the first call
//   - StaticProvider: identity taken from configuration
package session
