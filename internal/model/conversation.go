// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered, oldest-first message sequence shown by a chat view.
// It is append-only during a session and replaced wholesale when history loads.
type Conversation struct {
	Messages []*Message `json:"messages"`
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		Messages: make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Replace discards the current sequence and installs msgs in the given order.
func (c *Conversation) Replace(msgs []*Message) {
	c.Messages = make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg != nil {
			c.Messages = append(c.Messages, msg)
		}
	}
}

// AddMessage appends a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	if msg == nil {
		return
	}
	c.Messages = append(c.Messages, msg)
}

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AddErrorMessage creates and appends a synthetic assistant error message.
func (c *Conversation) AddErrorMessage(content string) *Message {
	msg := NewErrorMessage(content)
	c.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastIsStreaming reports whether the newest message is still receiving tokens.
func (c *Conversation) LastIsStreaming() bool {
	last := c.GetLastMessage()
	return last != nil && last.IsStreaming
}

// AppendToLast appends a token to the last (streaming) message.
// It is a no-op when the last message is not streaming.
func (c *Conversation) AppendToLast(token string) {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.AppendToken(token)
	}
}

// FinalizeLast finalizes the last streaming message.
func (c *Conversation) FinalizeLast() {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream()
	}
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// GetHistory returns a copy of the message slice.
func (c *Conversation) GetHistory() []*Message {
	out := make([]*Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}
