// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat-history and inference services.
package backend

// =============================================================================
// HISTORY TYPES
// =============================================================================

// Message is a chat turn as the services exchange it.
type Message struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // Raw text; assistant turns are markdown
}

// History is the body returned by the history endpoint.
type History struct {
	Messages  []Message `json:"messages"`
	SessionID string    `json:"sessionId"` // Opaque; carried, never interpreted
}

// =============================================================================
// INFERENCE TYPES
// =============================================================================

// InferenceRequest is the body posted to the inference endpoint.
type InferenceRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`

	// RequestID is sent as a header, not in the body. Empty means the
	// client does not announce one.
	RequestID string `json:"-"`
}

// StreamChunk represents a single piece of a streamed reply.
type StreamChunk struct {
	Content string // Text to append to the assistant message
	Done    bool   // True on the final chunk
}

// StreamCallback is called for each chunk during streaming.
type StreamCallback func(chunk StreamChunk)

// streamLine is one decoded JSON object from a structured reply body.
// Several producer shapes are accepted: Ollama chat (message.content),
// Ollama generate (response) and a flat content field.
type streamLine struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
	Content  string `json:"content,omitempty"`
	Done     bool   `json:"done,omitempty"`
	Error    string `json:"error,omitempty"`
}

// text returns the content carried by the line, whichever field holds it.
func (l *streamLine) text() string {
	switch {
	case l.Message != nil && l.Message.Content != "":
		return l.Message.Content
	case l.Response != "":
		return l.Response
	default:
		return l.Content
	}
}
