// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat-history and inference services.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/"})
}

// inferText posts a message and collects the whole reply.
func inferText(client *Client, request InferenceRequest) (string, error) {
	stream, err := client.Infer(context.Background(), request)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	err = stream.Process(context.Background(), func(chunk StreamChunk) {
		sb.WriteString(chunk.Content)
	})
	return sb.String(), err
}

// streamOver wraps r as a reply body with the given content type.
func streamOver(r io.Reader, contentType string) *Stream {
	return newStream(context.Background(), io.NopCloser(r), contentType, "")
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test/"})
	cfg := client.Config()

	if cfg.BaseURL != "http://example.test" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.HistoryPath != "/api/chat-history" {
		t.Errorf("HistoryPath = %q, want /api/chat-history", cfg.HistoryPath)
	}
	if cfg.InferencePath != "/api/ollama" {
		t.Errorf("InferencePath = %q, want /api/ollama", cfg.InferencePath)
	}
	if cfg.RequestIDHeader != "X-Request-ID" {
		t.Errorf("RequestIDHeader = %q, want X-Request-ID", cfg.RequestIDHeader)
	}
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestLoadHistory_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/chat-history", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"messages":[{"role":"user","content":"hi"}],"sessionId":"abc"}`)
	}))

	history, err := client.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", history.SessionID)
	assert.Equal(t, []Message{{Role: "user", Content: "hi"}}, history.Messages)
}

func TestLoadHistory_NullMessages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"messages":null,"sessionId":"s"}`)
	}))

	history, err := client.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, history.Messages)
	assert.Empty(t, history.Messages)
}

func TestLoadHistory_Failures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType ErrorType
	}{
		{
			name: "non-success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusInternalServerError)
			},
			wantType: ErrTypeHTTPStatus,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"messages":`)
			},
			wantType: ErrTypeDecode,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.handler)
			_, err := client.LoadHistory(context.Background())
			require.Error(t, err)

			var clientErr *ClientError
			require.True(t, errors.As(err, &clientErr))
			if clientErr.Type != tc.wantType {
				t.Errorf("Type = %v, want %v", clientErr.Type, tc.wantType)
			}
		})
	}
}

func TestLoadHistory_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url})
	_, err := client.LoadHistory(context.Background())
	if !IsConnection(err) {
		t.Errorf("IsConnection(%v) = false, want true", err)
	}
}

// =============================================================================
// INFERENCE TESTS
// =============================================================================

func TestInfer_SendsBodyAndRequestID(t *testing.T) {
	var got InferenceRequest
	var gotHeader string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotHeader = r.Header.Get("X-Request-ID")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, "Hello there")
	}))

	text, err := inferText(client, InferenceRequest{
		Message:   "hello",
		SessionID: "abc",
		RequestID: "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", text)
	assert.Equal(t, "hello", got.Message)
	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, "req-1", gotHeader)
}

func TestInfer_EmptySessionIsSent(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
	}))

	_, err := inferText(client, InferenceRequest{Message: "x"})
	require.NoError(t, err)

	sessionID, ok := raw["sessionId"]
	require.True(t, ok, "sessionId key missing from body")
	assert.Equal(t, "", sessionID)
	_, leaked := raw["RequestID"]
	assert.False(t, leaked, "request id must not be in the body")
}

func TestInfer_NonSuccessCapturesBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "boom")
	}))

	_, err := client.Infer(context.Background(), InferenceRequest{Message: "hello"})
	require.Error(t, err)

	if got, want := err.Error(), "Failed to fetch response: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrTypeHTTPStatus, clientErr.Type)
	assert.Equal(t, http.StatusBadGateway, clientErr.StatusCode)
}

func TestInfer_ServerRequestIDWins(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "server-id")
		io.WriteString(w, "ok")
	}))

	stream, err := client.Infer(context.Background(), InferenceRequest{Message: "m", RequestID: "client-id"})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "server-id", stream.RequestID())
}

func TestInfer_NDJSONStream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"response":"lo"}`,
			`{"content":", **world**"}`,
			`{"done":true}`,
			`{"content":"ignored after done"}`,
		} {
			io.WriteString(w, line+"\n")
			flusher.Flush()
		}
	}))

	stream, err := client.Infer(context.Background(), InferenceRequest{Message: "m"})
	require.NoError(t, err)
	defer stream.Close()

	var parts []string
	var sawDone bool
	err = stream.Process(context.Background(), func(c StreamChunk) {
		if c.Content != "" {
			parts = append(parts, c.Content)
		}
		sawDone = sawDone || c.Done
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", ", **world**"}, parts)
	assert.True(t, sawDone)
}

func TestInfer_StreamErrorField(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"content":"partial"}`+"\n"+`{"error":"model crashed"}`+"\n")
	}))

	text, err := inferText(client, InferenceRequest{Message: "m"})
	require.Error(t, err)
	assert.Equal(t, "partial", text)
	assert.Equal(t, "model crashed", err.Error())
}

func TestInfer_ContextCancelEndsStream(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "first")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Infer(ctx, InferenceRequest{Message: "m"})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", chunk.Content)

	cancel()
	_, err = stream.Next()
	if !IsCancelled(err) {
		t.Errorf("IsCancelled(%v) = false, want true", err)
	}

	// Exhausted streams stay exhausted.
	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestCancel_SendsDeleteWithHeader(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/ollama", r.URL.Path)
		assert.Equal(t, "req-9", r.Header.Get("X-Request-ID"))
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.Cancel(context.Background(), "req-9"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancel_Failures(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown request", http.StatusNotFound)
	}))

	err := client.Cancel(context.Background(), "req-9")
	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, http.StatusNotFound, clientErr.StatusCode)

	err = client.Cancel(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingRequestID)
}

// =============================================================================
// STREAM DECODER TESTS
// =============================================================================

func TestStream_RawSplitsOnRuneBoundaries(t *testing.T) {
	// "é" is two bytes; feed it one byte at a time.
	r := &byteReader{data: []byte("caf\xc3\xa9!")}
	stream := streamOver(r, "text/plain; charset=utf-8")

	var sb strings.Builder
	require.NoError(t, stream.Process(context.Background(), func(c StreamChunk) {
		if !utf8Valid(c.Content) {
			t.Errorf("chunk %q is not valid UTF-8", c.Content)
		}
		sb.WriteString(c.Content)
	}))
	assert.Equal(t, "café!", sb.String())
}

func TestStream_MalformedJSON(t *testing.T) {
	stream := streamOver(strings.NewReader(`{"content":"a"}{oops`), "application/json")

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", chunk.Content)

	_, err = stream.Next()
	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrTypeDecode, clientErr.Type)
}

func TestStream_JSONBodyShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"object after whitespace", "\n  {\"response\":\"hi\"}", "hi"},
		{"bare string", `"Breathe slowly."`, "Breathe slowly."},
		{"string sequence", `"Breathe " "slowly."`, "Breathe slowly."},
		{"array falls back to text", `["a","b"]`, `["a","b"]`},
		{"number falls back to text", "42", "42"},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := streamOver(strings.NewReader(tt.body), "application/json")
			var sb strings.Builder
			require.NoError(t, stream.Process(context.Background(), func(c StreamChunk) {
				sb.WriteString(c.Content)
			}))
			if sb.String() != tt.want {
				t.Errorf("reply = %q, want %q", sb.String(), tt.want)
			}
		})
	}
}

func TestInfer_BareJSONStringReply(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `"You are doing well."`)
	}))

	text, err := inferText(client, InferenceRequest{Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "You are doing well.", text)
}

func TestIsStructured(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/x-ndjson", true},
		{"application/json; charset=utf-8", true},
		{"application/vnd.chat+json", true},
		{"text/plain", false},
		{"text/event-stream", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := isStructured(tc.contentType); got != tc.want {
			t.Errorf("isStructured(%q) = %v, want %v", tc.contentType, got, tc.want)
		}
	}
}

func TestCompleteUTF8Prefix(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"ascii", []byte("abc"), 3},
		{"complete two-byte", []byte("a\xc3\xa9"), 3},
		{"split two-byte", []byte("a\xc3"), 1},
		{"split four-byte", []byte("a\xf0\x9f\x98"), 1},
		{"empty", nil, 0},
	}

	for _, tc := range tests {
		if got := completeUTF8Prefix(tc.data); got != tc.want {
			t.Errorf("%s: completeUTF8Prefix() = %d, want %d", tc.name, got, tc.want)
		}
	}
}

// byteReader returns one byte per Read call.
type byteReader struct {
	data []byte
}

func (b *byteReader) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, io.EOF
	}
	p[0] = b.data[0]
	b.data = b.data[1:]
	return 1, nil
}

func utf8Valid(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}
