// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat view:
//   - History: the result of the startup history load
//   - Streaming: stream start, chunk delivery, completion, errors and the render tick
//   - Stop: the outcome of a remote cancellation
//   - Config: a reloaded configuration file
//   - Export: the result of saving the transcript
package chat

import (
	"time"

	"github.com/calmistry/assistant-tui/internal/backend"
	"github.com/calmistry/assistant-tui/internal/config"
)

// =============================================================================
// HISTORY MESSAGES
// =============================================================================

// HistoryLoadedMsg delivers the result of the startup history load.
type HistoryLoadedMsg struct {
	History *backend.History
	Err     error
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that the inference call was accepted and its body
// is being read.
type StreamStartMsg struct {
	GenID     uint64
	RequestID string
	StartTime time.Time
}

// StreamTokenMsg delivers a chunk of reply text.
type StreamTokenMsg struct {
	GenID uint64
	Token string
}

// StreamCompleteMsg signals that the reply ended normally.
type StreamCompleteMsg struct {
	GenID    uint64
	Duration time.Duration
}

// StreamErrorMsg signals that the request or its stream failed.
type StreamErrorMsg struct {
	GenID uint64
	Err   error
}

// StreamTickMsg drives batched rendering while a request is outstanding.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// STOP MESSAGES
// =============================================================================

// StopSentMsg reports that a remote cancellation was attempted.
type StopSentMsg struct {
	RequestID string
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg carries a configuration re-read from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportedMsg reports where the transcript was saved, or why it was not.
type ExportedMsg struct {
	Path string
	Err  error
}
