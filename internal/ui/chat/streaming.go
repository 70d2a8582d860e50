// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calmistry/assistant-tui/internal/logging"
	"github.com/calmistry/assistant-tui/internal/session"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches reply chunks so the view re-renders markdown at a
// capped frame rate instead of once per chunk. A flush happens when
// batchSize chunks are pending or minFlush has passed since the last one.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize int
	minFlush  time.Duration
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer flushing every 15 chunks or ~33ms.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a buffer with custom thresholds.
// Out of range values fall back to the defaults.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &StreamingBuffer{
		batchSize: batchSize,
		minFlush:  time.Second / time.Duration(maxFPS),
		lastFlush: time.Now(),
	}
}

// Write adds a chunk to the buffer.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns the buffered text if a size or time threshold was reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush returns everything buffered regardless of thresholds.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

// Reset discards buffered text.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

func (sb *StreamingBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// streamTickCmd schedules the next StreamTickMsg at ~30fps.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// =============================================================================
// STREAM RUNNER
// =============================================================================

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// StreamRunner performs inference calls on behalf of the view and pushes
// each chunk into the program as a StreamTokenMsg. It is shared by pointer
// so it can be connected to the program after the model is handed over.
type StreamRunner struct {
	mu      sync.Mutex
	sender  Sender
	backend session.Backend
}

// NewStreamRunner creates a runner for b. Chunks are dropped until a
// sender is attached.
func NewStreamRunner(b session.Backend) *StreamRunner {
	return &StreamRunner{backend: b}
}

// SetSender attaches the program that receives stream messages.
func (r *StreamRunner) SetSender(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sender = s
}

func (r *StreamRunner) send(msg tea.Msg) bool {
	r.mu.Lock()
	s := r.sender
	r.mu.Unlock()
	if s == nil {
		return false
	}
	s.Send(msg)
	return true
}

// Run returns a command that sends gen's request and streams the reply.
// The command's own result is the terminal StreamCompleteMsg or
// StreamErrorMsg. Stopping the generation cancels its context, which ends
// the read loop.
func (r *StreamRunner) Run(gen *session.Generation) tea.Cmd {
	b := r.backend
	return func() tea.Msg {
		ctx := gen.Context()
		start := time.Now()

		stream, err := b.Infer(ctx, gen.Request)
		if err != nil {
			return StreamErrorMsg{GenID: gen.ID, Err: err}
		}
		defer stream.Close()

		r.send(StreamStartMsg{GenID: gen.ID, RequestID: stream.RequestID(), StartTime: start})

		chunks := 0
		for {
			chunk, err := stream.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return StreamErrorMsg{GenID: gen.ID, Err: err}
			}
			if chunk.Content == "" {
				continue
			}
			chunks++
			if !r.send(StreamTokenMsg{GenID: gen.ID, Token: chunk.Content}) {
				logging.L.Warn("dropping stream chunk, no program attached", "generation", gen.ID)
			}
		}

		logging.L.Debug("stream finished", "generation", gen.ID, "chunks", chunks, "duration", time.Since(start))
		return StreamCompleteMsg{GenID: gen.ID, Duration: time.Since(start)}
	}
}
