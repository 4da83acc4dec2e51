// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session resolves the signed-in user from an external auth service.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNoSession is returned when the auth service reports no signed-in user.
var ErrNoSession = errors.New("no active session")

// SessionPath is the endpoint queried by HTTPProvider.
const SessionPath = "/api/auth/get-session"

// =============================================================================
// IDENTITY
// =============================================================================

// Identity is the signed-in user.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`

	// Token is attached to chat requests as a bearer token.
	Token string `json:"-"`
}

// DisplayName returns the best available name for the header.
func (i *Identity) DisplayName() string {
	if i == nil {
		return "Guest"
	}
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return "Guest"
	}
}

// Provider supplies the current identity. Refresh forces a refetch.
type Provider interface {
	Current(ctx context.Context) (*Identity, error)
	Refresh(ctx context.Context) (*Identity, error)
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider returns a fixed identity.
type StaticProvider struct {
	identity *Identity
}

// NewStaticProvider creates a provider for a configured user name and token.
func NewStaticProvider(name, token string) *StaticProvider {
	return &StaticProvider{identity: &Identity{Name: name, Token: token}}
}

// Current returns the configured identity.
func (p *StaticProvider) Current(context.Context) (*Identity, error) {
	return p.identity, nil
}

// Refresh returns the configured identity.
func (p *StaticProvider) Refresh(ctx context.Context) (*Identity, error) {
	return p.Current(ctx)
}

// =============================================================================
// HTTP PROVIDER
// =============================================================================

// HTTPProvider queries {BaseURL}/api/auth/get-session and caches the result.
type HTTPProvider struct {
	mu sync.Mutex

	baseURL    string
	token      string
	httpClient *http.Client
	cached     *Identity
}

// NewHTTPProvider creates a provider for the auth service at baseURL.
func NewHTTPProvider(baseURL, token string, timeout time.Duration) *HTTPProvider {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Current returns the cached identity, fetching it on first use.
func (p *HTTPProvider) Current(ctx context.Context) (*Identity, error) {
	p.mu.Lock()
	cached := p.cached
	p.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	return p.Refresh(ctx)
}

// Refresh fetches the session and replaces the cache.
func (p *HTTPProvider) Refresh(ctx context.Context) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+SessionPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("fetch session: %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	var payload struct {
		User *Identity `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if payload.User == nil {
		return nil, ErrNoSession
	}
	payload.User.Token = p.token

	p.mu.Lock()
	p.cached = payload.User
	p.mu.Unlock()
	return payload.User, nil
}
