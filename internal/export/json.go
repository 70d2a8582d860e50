// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/calmistry/assistant-tui/internal/backend"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the transcript in the chat-history response shape,
// plus an export time. Error notices are local and are left out.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonTranscript struct {
	backend.History
	ExportedAt time.Time `json:"exportedAt"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	out := jsonTranscript{
		History: backend.History{
			Messages:  make([]backend.Message, 0, len(t.Messages)),
			SessionID: t.SessionID,
		},
		ExportedAt: t.ExportedAt,
	}
	for _, msg := range t.Messages {
		if msg.IsError {
			continue
		}
		out.Messages = append(out.Messages, backend.Message{Role: msg.Role.String(), Content: msg.GetDisplayContent()})
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
