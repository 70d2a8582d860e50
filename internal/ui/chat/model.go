// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/calmistry/assistant-tui/internal/config"
	"github.com/calmistry/assistant-tui/internal/session"
	"github.com/calmistry/assistant-tui/internal/ui/components"
	"github.com/calmistry/assistant-tui/internal/ui/styles"
)

// Submit control labels.
const (
	LabelSend     = "Send"
	LabelThinking = "Thinking..."
	LabelStop     = "Stop"
)

// Rows taken below the viewport: the bordered input and the status bar.
const (
	inputHeight     = 3
	statusBarHeight = 1
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Styling
	theme *styles.Theme
	ui    config.UIConfig

	// Dimensions
	width  int
	height int

	// Conversation, identifiers and phase
	state       *session.State
	client      session.Backend
	runner      *StreamRunner
	loadHistory bool
	exportDir   string
	notice      string
	noticeErr   bool

	// Streaming
	buffer    *StreamingBuffer
	streamGen uint64
	ticking   bool
	cancelMgr *cancelManager // Pointer to avoid copying mutex during Bubble Tea updates

	// UI Components
	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	welcome   components.Welcome
	statusBar *components.StatusBar
	markdown  *markdownRenderer

	keyMap KeyMap
}

// Option configures a Model.
type Option func(*Model)

// WithState uses st instead of a fresh session.State.
func WithState(st *session.State) Option {
	return func(m *Model) {
		if st != nil {
			m.state = st
		}
	}
}

// WithRunner uses r to run inference requests. It must wrap the same backend.
func WithRunner(r *StreamRunner) Option {
	return func(m *Model) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithoutHistory skips the startup history load.
func WithoutHistory() Option {
	return func(m *Model) {
		m.loadHistory = false
	}
}

// WithExportDir saves transcripts under dir instead of the working directory.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		m.exportDir = dir
	}
}

// New creates a chat view talking to client.
func New(theme *styles.Theme, client session.Backend, ui config.UIConfig, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = ui.Placeholder
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII frames so the spinner renders on any terminal.
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		theme:       theme,
		ui:          ui,
		state:       session.New(),
		client:      client,
		loadHistory: true,
		buffer:      NewStreamingBuffer(),
		cancelMgr:   newCancelManager(),
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		welcome:     components.NewWelcome(theme, ui.Title, ui.Subtitle),
		statusBar:   components.NewStatusBar(theme),
		markdown:    newMarkdownRenderer(theme.GlamourStyle()),
		keyMap:      DefaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.runner == nil {
		m.runner = NewStreamRunner(client)
	}
	m.applyTheme()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the history load and the cursor blink.
func (m Model) Init() tea.Cmd {
	if !m.loadHistory {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.loadHistoryCmd())
}

// Close cancels background work still attached to the view. Call it after
// the program exits.
func (m Model) Close() {
	m.cancelMgr.clear()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the session state behind the view.
func (m Model) State() *session.State {
	return m.state
}

// Runner returns the stream runner; attach the program to it with SetSender.
func (m Model) Runner() *StreamRunner {
	return m.runner
}

// InputValue returns the current text in the input field.
func (m Model) InputValue() string {
	return m.input.Value()
}

// InputEnabled reports whether keystrokes reach the input field.
func (m Model) InputEnabled() bool {
	return !m.state.Busy()
}

// SubmitLabel returns the label of the submit control for the current phase.
func (m Model) SubmitLabel() string {
	switch m.state.Phase() {
	case session.PhaseLoading:
		return LabelThinking
	case session.PhaseGenerating:
		return LabelStop
	default:
		return LabelSend
	}
}

// Notice returns the last export result shown in the status bar.
func (m Model) Notice() string {
	return m.notice
}

// =============================================================================
// THEME
// =============================================================================

// applyTheme pushes theme styles into the bubbles components.
func (m *Model) applyTheme() {
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.PlaceholderStyle = m.theme.InputPlaceholder
	m.spinner.Style = m.theme.Spinner
	m.welcome.SetTheme(m.theme)
	m.statusBar.SetTheme(m.theme)
	m.markdown.SetStyle(m.theme.GlamourStyle())
}
