// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state owned by one chat view: the conversation,
// the session and request identifiers, and the idle/loading/generating phase.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/calmistry/assistant-tui/internal/backend"
	"github.com/calmistry/assistant-tui/internal/logging"
	"github.com/calmistry/assistant-tui/internal/model"
)

// ErrorPrefix starts every synthetic assistant message describing a failed request.
const ErrorPrefix = "An error occurred while processing your request: "

// Errors returned by Begin.
var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("a request is already in progress")
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is the pair of collaborators a chat view talks to.
// *backend.Client satisfies it.
type Backend interface {
	LoadHistory(ctx context.Context) (*backend.History, error)
	Infer(ctx context.Context, request backend.InferenceRequest) (*backend.Stream, error)
	Cancel(ctx context.Context, requestID string) error
}

// =============================================================================
// GENERATION
// =============================================================================

// Generation describes one submitted message awaiting its reply.
type Generation struct {
	// ID distinguishes this generation from earlier, possibly stopped, ones.
	ID      uint64
	Request backend.InferenceRequest
	ctx     context.Context
}

// Context is cancelled when the generation is stopped or finishes.
func (g *Generation) Context() context.Context {
	return g.ctx
}

// =============================================================================
// STATE
// =============================================================================

// State is the mutable state of one chat view. It is safe for concurrent use;
// the plain REPL stops generations from a signal goroutine.
type State struct {
	mu sync.Mutex

	conv      *model.Conversation
	sessionID string
	requestID string

	phase *stateless.StateMachine

	generation uint64
	cancel     context.CancelFunc

	historyLoaded bool
	newRequestID  func() string
}

// Option configures a State.
type Option func(*State)

// WithRequestIDFunc replaces the request identifier generator.
func WithRequestIDFunc(fn func() string) Option {
	return func(s *State) {
		if fn != nil {
			s.newRequestID = fn
		}
	}
}

// New creates an idle State with an empty conversation.
func New(opts ...Option) *State {
	s := &State{
		conv:         model.NewConversation(),
		phase:        newPhaseMachine(),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// HISTORY
// =============================================================================

// ApplyHistory replaces the whole conversation with the loaded messages and
// adopts the session identifier.
func (s *State) ApplyHistory(h *backend.History) {
	if h == nil {
		return
	}
	msgs := make([]*model.Message, 0, len(h.Messages))
	for _, m := range h.Messages {
		msgs = append(msgs, model.NewMessage(model.Role(m.Role), m.Content))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Replace(msgs)
	s.sessionID = h.SessionID
	s.historyLoaded = true
}

// LoadHistory fetches history and applies it. A failure is logged and leaves
// the conversation untouched.
func (s *State) LoadHistory(ctx context.Context, b Backend) error {
	h, err := b.LoadHistory(ctx)
	if err != nil {
		logging.L.Error("failed to load chat history", "error", err)
		return err
	}
	s.ApplyHistory(h)
	logging.L.Debug("chat history loaded", "messages", len(h.Messages), "session_id", h.SessionID)
	return nil
}

// HistoryLoaded reports whether a history load has succeeded.
func (s *State) HistoryLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLoaded
}

// =============================================================================
// SUBMIT / STREAM / FINISH
// =============================================================================

// Begin starts a generation for text. The user message is appended at once
// and is never rolled back. Text that is blank after trimming returns
// ErrEmptyInput with no change; a call while not idle returns ErrBusy.
func (s *State) Begin(parent context.Context, text string) (*Generation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.phase.Fire(triggerSubmit); err != nil {
		logging.L.Debug("submit rejected", "phase", s.currentPhase(), "error", err)
		return nil, ErrBusy
	}

	s.conv.AddUserMessage(text)
	s.generation++
	s.requestID = s.newRequestID()

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	return &Generation{
		ID: s.generation,
		Request: backend.InferenceRequest{
			Message:   text,
			SessionID: s.sessionID,
			RequestID: s.requestID,
		},
		ctx: ctx,
	}, nil
}

// AdoptRequestID replaces the request identifier with one issued by the server.
func (s *State) AdoptRequestID(genID uint64, requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrent(genID) || requestID == "" {
		return
	}
	s.requestID = requestID
}

// AppendChunk appends streamed text to the growing assistant message.
// It returns false when the generation is no longer current.
func (s *State) AppendChunk(genID uint64, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isCurrent(genID) {
		return false
	}
	if text == "" {
		return true
	}
	if !s.conv.LastIsStreaming() {
		s.conv.AddAssistantMessage()
		s.phase.Fire(triggerFirstContent)
	}
	s.conv.AppendToLast(text)
	return true
}

// Finish ends the current generation. A non-nil err that is not a local
// cancellation appends an assistant message describing it. Loading state
// and the request identifier are always cleared. It returns false when the
// generation had already ended.
func (s *State) Finish(genID uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isCurrent(genID) {
		return false
	}

	s.conv.FinalizeLast()
	if err != nil && !backend.IsCancelled(err) {
		s.conv.AddErrorMessage(ErrorPrefix + err.Error())
		logging.L.Error("inference request failed", "error", err, "generation", genID)
	}

	s.phase.Fire(triggerFinish)
	s.release()
	return true
}

// =============================================================================
// STOP
// =============================================================================

// Stop ends local consumption of the current generation and returns the
// request identifier that should receive a cancellation, or "" when none
// was set. The generating state is cleared unconditionally.
func (s *State) Stop() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestID := s.requestID
	s.conv.FinalizeLast()
	s.phase.Fire(triggerStop)
	s.release()
	return requestID
}

// CancelRemote sends a cancellation for requestID. Failures are logged only.
func CancelRemote(ctx context.Context, b Backend, requestID string) {
	if requestID == "" {
		return
	}
	if err := b.Cancel(ctx, requestID); err != nil {
		logging.L.Warn("failed to stop generation", "request_id", requestID, "error", err)
		return
	}
	logging.L.Debug("generation stop requested", "request_id", requestID)
}

// release clears per-generation state. Caller holds mu.
func (s *State) release() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.requestID = ""
}

// isCurrent reports whether genID is the generation in flight. Caller holds mu.
func (s *State) isCurrent(genID uint64) bool {
	return genID == s.generation && s.currentPhase() != PhaseIdle
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPhase()
}

// IsLoading reports whether a request was sent and no output has arrived yet.
func (s *State) IsLoading() bool {
	return s.Phase() == PhaseLoading
}

// IsGenerating reports whether output is arriving and can be stopped.
func (s *State) IsGenerating() bool {
	return s.Phase() == PhaseGenerating
}

// Busy reports whether any request is outstanding.
func (s *State) Busy() bool {
	return s.Phase() != PhaseIdle
}

// SessionID returns the session identifier from the last history load.
func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// RequestID returns the identifier of the generation in flight, or "".
func (s *State) RequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestID
}

// GenerationID returns the ID of the most recent generation.
func (s *State) GenerationID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Messages returns a snapshot of the conversation.
func (s *State) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.GetHistory()
}

// View calls fn with the conversation while holding the lock. fn must not
// call back into the State.
func (s *State) View(fn func(conv *model.Conversation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.conv)
}
