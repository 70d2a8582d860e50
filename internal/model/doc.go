// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: ordered, oldest-first sequence of messages for one chat view
//   - Message: a single turn with role and content, plus local streaming state
//   - Role: user or assistant
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Hello!")
//	conv.AddAssistantMessage()
//	conv.AppendToLast("Hi")
//	conv.FinalizeLast()
package model
