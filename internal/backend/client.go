// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat-history and inference services.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int // Set for ErrTypeHTTPStatus
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeHTTPStatus
	ErrTypeDecode
	ErrTypeStream
	ErrTypeCancelled
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeHTTPStatus:
		return "http_status"
	case ErrTypeDecode:
		return "decode"
	case ErrTypeStream:
		return "stream"
	case ErrTypeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrCancelled        = &ClientError{Type: ErrTypeCancelled, Message: "request cancelled"}
	ErrMissingRequestID = &ClientError{Type: ErrTypeUnknown, Message: "request id is required"}
)

// FetchFailurePrefix starts the description of a non-success inference reply.
// The captured response body follows it verbatim.
const FetchFailurePrefix = "Failed to fetch response: "

// maxErrorBody bounds how much of a failed reply body is captured.
const maxErrorBody = 64 * 1024

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the service origin (default: http://127.0.0.1:3000)
	BaseURL string

	// HistoryPath is the chat-history endpoint (default: /api/chat-history)
	HistoryPath string

	// InferencePath is the inference and cancellation endpoint (default: /api/ollama)
	InferencePath string

	// RequestIDHeader carries the request identifier (default: X-Request-ID)
	RequestIDHeader string

	// ConnectTimeout bounds dialing only. Zero means no limit; replies are never timed out.
	ConnectTimeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         "http://127.0.0.1:3000",
		HistoryPath:     "/api/chat-history",
		InferencePath:   "/api/ollama",
		RequestIDHeader: "X-Request-ID",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat-history and inference services.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := backend.NewClient()
//	history, err := client.LoadHistory(ctx)
//	if err != nil {
//	    logging.L.Error("history load failed", "error", err)
//	}
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
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
	defaults := DefaultConfig()

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.HistoryPath == "" {
		config.HistoryPath = defaults.HistoryPath
	}
	if config.InferencePath == "" {
		config.InferencePath = defaults.InferencePath
	}
	if config.RequestIDHeader == "" {
		config.RequestIDHeader = defaults.RequestIDHeader
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if config.ConnectTimeout > 0 {
			transport.DialContext = (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext
		}
		// No client Timeout: replies stream for as long as the model talks.
		httpClient = &http.Client{Transport: transport}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

func (c *Client) historyURL() string {
	return c.config.BaseURL + c.config.HistoryPath
}

func (c *Client) inferenceURL() string {
	return c.config.BaseURL + c.config.InferencePath
}

// =============================================================================
// HISTORY
// =============================================================================

// LoadHistory fetches the prior conversation and its session identifier.
// Any non-2xx status is a failure.
func (c *Client) LoadHistory(ctx context.Context) (*History, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.historyURL(), nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, "failed to load chat history", err)
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return nil, &ClientError{
			Type:       ErrTypeHTTPStatus,
			Message:    "failed to load chat history: " + resp.Status,
			StatusCode: resp.StatusCode,
		}
	}

	var result History
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeDecode, Message: "failed to decode chat history", Cause: err}
	}
	if result.Messages == nil {
		result.Messages = []Message{}
	}

	return &result, nil
}

// =============================================================================
// INFERENCE
// =============================================================================

// Infer posts a user message and returns the reply as a Stream.
// The caller must Close the stream. Cancelling ctx ends the stream.
//
// A non-2xx reply fails with a description of the form
// "Failed to fetch response: <body>".
func (c *Client) Infer(ctx context.Context, request InferenceRequest) (*Stream, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inferenceURL(), bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if request.RequestID != "" {
		req.Header.Set(c.config.RequestIDHeader, request.RequestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, "Failed to fetch", err)
	}

	if !isSuccess(resp.StatusCode) {
		defer drainAndClose(resp.Body)
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ClientError{
			Type:       ErrTypeHTTPStatus,
			Message:    FetchFailurePrefix + string(text),
			StatusCode: resp.StatusCode,
		}
	}

	requestID := request.RequestID
	if echoed := resp.Header.Get(c.config.RequestIDHeader); echoed != "" {
		requestID = echoed
	}

	return newStream(ctx, resp.Body, resp.Header.Get("Content-Type"), requestID), nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel asks the inference service to stop the generation addressed by requestID.
// The reply carries no information beyond its status.
func (c *Client) Cancel(ctx context.Context, requestID string) error {
	if requestID == "" {
		return ErrMissingRequestID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.inferenceURL(), nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set(c.config.RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, "failed to send cancellation", err)
	}
	defer drainAndClose(resp.Body)

	if !isSuccess(resp.StatusCode) {
		return &ClientError{
			Type:       ErrTypeHTTPStatus,
			Message:    "cancel request failed: " + resp.Status,
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConnection checks if an error means the service could not be reached.
func IsConnection(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection
	}
	return false
}

// IsCancelled checks if an error was caused by local cancellation.
func IsCancelled(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeCancelled
	}
	return errors.Is(err, context.Canceled)
}

// transportError classifies a failed round trip.
func transportError(ctx context.Context, message string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &ClientError{Type: ErrTypeCancelled, Message: ErrCancelled.Message, Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: message, Cause: err}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, maxErrorBody))
	r.Close()
}
