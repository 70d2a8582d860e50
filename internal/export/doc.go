// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a chat transcript to a file.
//
// Two formats are supported: Markdown for reading and JSON in the same
// shape the chat-history endpoint returns ({"messages", "sessionId"}).
//
// Usage:
//
//	t := export.NewTranscript(state.SessionID(), state.Messages())
//	exporter, err := export.ForFormat("md", nil)
//	path, err := export.ToFile(t, exporter, "")
package export
