// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat-history and inference services.
package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"strings"
	"sync"
	"unicode/utf8"
)

// rawChunkSize is the read size for unstructured reply bodies.
const rawChunkSize = 4096

// =============================================================================
// STREAM
// =============================================================================

// Stream is a lazy, finite, non-restartable sequence of reply chunks.
//
// Structured bodies (NDJSON or JSON) are decoded object by object; anything
// else is passed through as raw text, split on UTF-8 boundaries. A structured
// body that holds JSON strings yields their text, and one that starts with
// any other value is read as raw text.
type Stream struct {
	ctx        context.Context
	body       io.ReadCloser
	reader     *bufio.Reader
	decoder    *json.Decoder // nil for raw bodies
	requestID  string
	sniffed    bool // first value of a structured body inspected
	stringBody bool // structured body is a sequence of JSON strings

	pending []byte // Incomplete UTF-8 tail from the previous raw read
	buf     []byte
	done    bool

	closeOnce sync.Once
}

// newStream wraps a successful reply body.
func newStream(ctx context.Context, body io.ReadCloser, contentType, requestID string) *Stream {
	s := &Stream{
		ctx:       ctx,
		body:      body,
		reader:    bufio.NewReader(body),
		requestID: requestID,
	}
	if isStructured(contentType) {
		s.decoder = json.NewDecoder(s.reader)
	} else {
		s.buf = make([]byte, rawChunkSize)
	}
	return s
}

// RequestID returns the identifier addressing this generation for cancellation.
// It is the server-echoed value when the reply carried one.
func (s *Stream) RequestID() string {
	return s.requestID
}

// Next returns the next chunk. It returns io.EOF once the reply is complete.
// Chunks with empty content are skipped.
func (s *Stream) Next() (StreamChunk, error) {
	for {
		if s.done {
			return StreamChunk{}, io.EOF
		}
		if err := s.ctx.Err(); err != nil {
			s.done = true
			return StreamChunk{}, &ClientError{Type: ErrTypeCancelled, Message: ErrCancelled.Message, Cause: err}
		}

		if s.decoder != nil && !s.sniffed {
			s.sniff()
		}

		var (
			chunk StreamChunk
			err   error
		)
		if s.decoder != nil {
			chunk, err = s.nextStructured()
		} else {
			chunk, err = s.nextRaw()
		}
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				return StreamChunk{}, io.EOF
			}
			if s.ctx.Err() != nil {
				return StreamChunk{}, &ClientError{Type: ErrTypeCancelled, Message: ErrCancelled.Message, Cause: s.ctx.Err()}
			}
			return StreamChunk{}, err
		}
		if chunk.Done {
			s.done = true
		}
		if chunk.Content != "" || chunk.Done {
			return chunk, nil
		}
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *Stream) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return &ClientError{Type: ErrTypeCancelled, Message: ErrCancelled.Message, Cause: ctx.Err()}
		default:
		}

		chunk, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		callback(chunk)
		if chunk.Done {
			return nil
		}
	}
}

// Close releases the reply body. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.done = true
		err = s.body.Close()
	})
	return err
}

// =============================================================================
// DECODERS
// =============================================================================

// sniff looks at the first value of a structured body and picks how to read it.
// Read errors are left for the decoder to report.
func (s *Stream) sniff() {
	s.sniffed = true
	for {
		b, err := s.reader.Peek(1)
		if err != nil {
			return
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			s.reader.Discard(1)
		case '{':
			return
		case '"':
			s.stringBody = true
			return
		default:
			s.decoder = nil
			s.buf = make([]byte, rawChunkSize)
			return
		}
	}
}

// nextStructured decodes one JSON object, or one string for string bodies.
func (s *Stream) nextStructured() (StreamChunk, error) {
	if s.stringBody {
		var text string
		if err := s.decoder.Decode(&text); err != nil {
			return StreamChunk{}, s.decodeError(err)
		}
		return StreamChunk{Content: text}, nil
	}

	var line streamLine
	if err := s.decoder.Decode(&line); err != nil {
		return StreamChunk{}, s.decodeError(err)
	}
	if line.Error != "" {
		return StreamChunk{}, &ClientError{Type: ErrTypeStream, Message: line.Error}
	}
	return StreamChunk{Content: line.text(), Done: line.Done}, nil
}

func (s *Stream) decodeError(err error) error {
	if errors.Is(err, io.EOF) || s.ctx.Err() != nil {
		return err
	}
	return &ClientError{Type: ErrTypeDecode, Message: "failed to decode reply", Cause: err}
}

// nextRaw reads the next block of plain text, holding back a split rune.
func (s *Stream) nextRaw() (StreamChunk, error) {
	n, err := s.reader.Read(s.buf)
	if n > 0 {
		data := append(s.pending, s.buf[:n]...)
		cut := completeUTF8Prefix(data)
		s.pending = append([]byte(nil), data[cut:]...)
		return StreamChunk{Content: string(data[:cut])}, nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) && len(s.pending) > 0 {
			tail := string(s.pending)
			s.pending = nil
			return StreamChunk{Content: tail, Done: true}, nil
		}
		if errors.Is(err, io.EOF) {
			return StreamChunk{}, io.EOF
		}
		if s.ctx.Err() != nil {
			return StreamChunk{}, err
		}
		return StreamChunk{}, &ClientError{Type: ErrTypeStream, Message: "failed to read reply", Cause: err}
	}
	return StreamChunk{}, nil
}

// completeUTF8Prefix returns the length of the longest prefix of data that
// does not end in the middle of a multi-byte rune.
func completeUTF8Prefix(data []byte) int {
	end := len(data)
	// A rune is at most 4 bytes, so only the last 3 can start an incomplete one.
	for i := end - 1; i >= 0 && i >= end-utf8.UTFMax+1; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:end]) {
				return i
			}
			break
		}
	}
	return end
}

// isStructured reports whether a content type carries JSON objects.
func isStructured(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	switch mediaType {
	case "application/x-ndjson", "application/ndjson", "application/jsonl", "application/json":
		return true
	}
	return strings.HasSuffix(mediaType, "+json")
}
