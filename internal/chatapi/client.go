// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the streaming chat endpoint.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jeranaias/petalmind/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Body       string
	Cause      error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Body != "" {
		msg += " (" + e.Body + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeNoBody
	ErrTypeInvalidRequest
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeNoBody:
		return "no_body"
	case ErrTypeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrTimeout = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNoBody  = &ClientError{Type: ErrTypeNoBody, Message: "response has no body"}
)

// maxErrorBody bounds how much of a non-OK response body is kept.
const maxErrorBody = 512

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the server origin (default: http://127.0.0.1:3000)
	BaseURL string

	// Endpoint is the chat path appended to BaseURL (default: /api/chat)
	Endpoint string

	// Timeout bounds connecting and waiting for response headers. The body
	// itself is streamed without a deadline.
	Timeout time.Duration

	// Token is sent as a bearer token when non-empty.
	Token string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:  "http://127.0.0.1:3000",
		Endpoint: "/api/chat",
		Timeout:  30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues streaming chat requests.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := chatapi.NewClient()
//	body, err := client.ChatStream(ctx, history)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
//	frags := chatapi.NewFragmentReader(chatapi.FormatText, body)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// chatRequest is the JSON body posted to the endpoint.
type chatRequest struct {
	Messages []model.WireMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.Timeout
	transport.DialContext = (&net.Dialer{Timeout: config.Timeout}).DialContext

	return &Client{
		config: config,
		token:  config.Token,
		// No client timeout: the body streams for as long as the server sends.
		httpClient: &http.Client{Transport: transport},
	}
}

// URL returns the full chat endpoint URL.
func (c *Client) URL() string {
	return strings.TrimRight(c.config.BaseURL, "/") + c.config.Endpoint
}

// GetConfig returns a copy of the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	cfg := *c.config
	cfg.Token = c.Token()
	return &cfg
}

// SetToken replaces the bearer token used for later requests. It may be
// called while requests are in flight.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ChatStream posts the history with stream=true and returns the open
// response body. The caller must close it.
func (c *Client) ChatStream(ctx context.Context, messages []model.WireMessage) (io.ReadCloser, error) {
	if messages == nil {
		messages = []model.WireMessage{}
	}
	body, err := json.Marshal(chatRequest{Messages: messages, Stream: true})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ClientError{
			Type:       ErrTypeStatus,
			Message:    "chat request failed: " + resp.Status,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}

	// An empty 200 arrives as http.NoBody and reads as an empty stream.
	if resp.Body == nil {
		return nil, ErrNoBody
	}

	return resp.Body, nil
}

// classifyTransportError maps an http.Client error onto the taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "cannot reach chat endpoint", Cause: err}
}

// ReadError classifies an error returned while reading a response body.
// Transport failures become connection or timeout ClientErrors; decode
// errors and errors that already carry a type are returned unchanged.
func ReadError(err error) error {
	if err == nil {
		return nil
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &ClientError{Type: ErrTypeTimeout, Message: "stream timed out", Cause: err}
	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, net.ErrClosed),
		errors.As(err, &netErr):
		return &ClientError{Type: ErrTypeConnection, Message: "connection lost while streaming", Cause: err}
	}
	return err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorTypeOf returns the ErrorType of err, or ErrTypeUnknown.
func ErrorTypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return ErrorTypeOf(err) == ErrTypeTimeout
}

// IsConnection checks if an error indicates the endpoint is unreachable.
func IsConnection(err error) bool {
	return ErrorTypeOf(err) == ErrTypeConnection
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}

// Describe returns a short user-facing description of err.
func Describe(err error) string {
	switch ErrorTypeOf(err) {
	case ErrTypeConnection:
		return "Cannot reach the chat server"
	case ErrTypeTimeout:
		return "The chat server did not respond in time"
	case ErrTypeStatus:
		return fmt.Sprintf("The chat server returned HTTP %d", StatusCode(err))
	case ErrTypeNoBody:
		return "The chat server sent an empty response"
	default:
		return "Failed to get AI response"
	}
}
