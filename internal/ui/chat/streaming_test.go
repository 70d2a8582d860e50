// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmistry/assistant-tui/internal/backend"
	"github.com/calmistry/assistant-tui/internal/session"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestStreamingBufferWrite(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Hello")
	sb.Write(" ")
	sb.Write("World")

	if sb.tokenCount != 3 {
		t.Errorf("tokenCount = %d, want 3", sb.tokenCount)
	}
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 1)

	sb.Write("A")
	sb.Write("B")
	if _, ok := sb.Flush(); ok {
		t.Error("Flush() before reaching batch size should not flush")
	}

	sb.Write("C")
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("Flush() after reaching batch size should flush")
	}
	if content != "ABC" {
		t.Errorf("Flush() = %q, want %q", content, "ABC")
	}
	if sb.tokenCount != 0 {
		t.Errorf("tokenCount after flush = %d, want 0", sb.tokenCount)
	}
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 60)

	sb.Write("slow")
	time.Sleep(25 * time.Millisecond)

	content, ok := sb.Flush()
	if !ok || content != "slow" {
		t.Errorf("Flush() = (%q, %v), want (%q, true)", content, ok, "slow")
	}
}

func TestStreamingBufferForceFlushAndReset(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 1)

	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush() on empty buffer should report no content")
	}

	sb.Write("partial")
	content, ok := sb.ForceFlush()
	if !ok || content != "partial" {
		t.Errorf("ForceFlush() = (%q, %v), want (%q, true)", content, ok, "partial")
	}

	sb.Write("discarded")
	sb.Reset()
	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush() after Reset should report no content")
	}
}

func TestStreamingBufferConfigDefaults(t *testing.T) {
	sb := NewStreamingBufferWithConfig(0, 500)
	assert.Equal(t, defaultBatchSize, sb.batchSize)
	assert.Equal(t, time.Second/defaultMaxFPS, sb.minFlush)
}

func TestStreamingBufferConcurrency(t *testing.T) {
	sb := NewStreamingBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sb.Write("x")
			}
		}()
	}
	wg.Wait()

	content, _ := sb.ForceFlush()
	if len(content) != 1000 {
		t.Errorf("len(ForceFlush()) = %d, want 1000", len(content))
	}
}

func TestStreamingBufferUnicode(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 1)
	for _, tok := range []string{"こん", "にちは", " 🧠"} {
		sb.Write(tok)
	}
	content, _ := sb.ForceFlush()
	assert.Equal(t, "こんにちは 🧠", content)
}

// =============================================================================
// STREAM RUNNER TESTS
// =============================================================================

// recordingSender collects messages pushed into the program.
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSender) Messages() []tea.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tea.Msg(nil), s.msgs...)
}

func TestStreamRunner_PushesChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("X-Request-ID", "server-id")
		io.WriteString(w, `{"message":{"content":"Hello "}}`+"\n")
		io.WriteString(w, `{"message":{"content":"world"}}`+"\n")
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer srv.Close()

	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})
	st := session.New()
	gen, err := st.Begin(context.Background(), "hi")
	require.NoError(t, err)

	sender := &recordingSender{}
	runner := NewStreamRunner(client)
	runner.SetSender(sender)

	final := runner.Run(gen)()

	complete, ok := final.(StreamCompleteMsg)
	require.True(t, ok, "final message = %T", final)
	assert.Equal(t, gen.ID, complete.GenID)

	msgs := sender.Messages()
	require.Len(t, msgs, 3)
	start, ok := msgs[0].(StreamStartMsg)
	require.True(t, ok)
	assert.Equal(t, "server-id", start.RequestID)

	var text strings.Builder
	for _, msg := range msgs[1:] {
		tok, ok := msg.(StreamTokenMsg)
		require.True(t, ok)
		assert.Equal(t, gen.ID, tok.GenID)
		text.WriteString(tok.Token)
	}
	assert.Equal(t, "Hello world", text.String())
}

func TestStreamRunner_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	defer srv.Close()

	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})
	gen, err := session.New().Begin(context.Background(), "hi")
	require.NoError(t, err)

	sender := &recordingSender{}
	runner := NewStreamRunner(client)
	runner.SetSender(sender)

	final := runner.Run(gen)()

	failed, ok := final.(StreamErrorMsg)
	require.True(t, ok, "final message = %T", final)
	assert.EqualError(t, failed.Err, "Failed to fetch response: boom")
	assert.Empty(t, sender.Messages(), "nothing is pushed before the response is accepted")
}

func TestStreamRunner_StopEndsConsumption(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "first ")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})
	st := session.New()
	gen, err := st.Begin(context.Background(), "hi")
	require.NoError(t, err)

	sender := &recordingSender{}
	runner := NewStreamRunner(client)
	runner.SetSender(sender)

	done := make(chan tea.Msg, 1)
	go func() { done <- runner.Run(gen)() }()

	require.Eventually(t, func() bool { return len(sender.Messages()) >= 2 }, 5*time.Second, 10*time.Millisecond)
	st.Stop()

	select {
	case final := <-done:
		failed, ok := final.(StreamErrorMsg)
		require.True(t, ok, "final message = %T", final)
		assert.True(t, backend.IsCancelled(failed.Err))
	case <-time.After(5 * time.Second):
		t.Fatal("stream was not released after stop")
	}
}

func TestStreamRunner_NoSenderDropsChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "text")
	}))
	defer srv.Close()

	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})
	gen, err := session.New().Begin(context.Background(), "hi")
	require.NoError(t, err)

	final := NewStreamRunner(client).Run(gen)()
	_, ok := final.(StreamCompleteMsg)
	assert.True(t, ok)
}
