// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calmistry/assistant-tui/internal/export"
	"github.com/calmistry/assistant-tui/internal/logging"
	"github.com/calmistry/assistant-tui/internal/session"
	"github.com/calmistry/assistant-tui/internal/ui/styles"
)

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case HistoryLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case StreamStartMsg:
		m.state.AdoptRequestID(msg.GenID, msg.RequestID)
		return m, nil

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamCompleteMsg:
		return m.finish(msg.GenID, nil)

	case StreamErrorMsg:
		return m.finish(msg.GenID, msg.Err)

	case StopSentMsg:
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case ExportedMsg:
		return m.handleExported(msg)

	case spinner.TickMsg:
		if !m.state.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport(false)
		return m, cmd
	}

	if m.state.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	atBottom := m.viewport.AtBottom()

	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	vpHeight := max(msg.Height-inputHeight-statusBarHeight, 1)
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.welcome.SetSize(msg.Width, vpHeight)
	m.statusBar.SetWidth(msg.Width)
	// Border, padding, prompt and cursor share the box with the text.
	m.input.Width = max(m.inputBoxWidth()-lipgloss.Width(m.input.Prompt)-6, 1)

	m.refreshViewport(atBottom)
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Interrupt):
		if m.state.Busy() {
			return m.stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Quit) && m.input.Value() == "":
		if m.state.Busy() {
			next, stopCmd := m.stop()
			return next, tea.Sequence(stopCmd, tea.Quit)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Stop):
		if m.state.Busy() {
			return m.stop()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Export):
		return m.export()

	case key.Matches(msg, m.keyMap.Send):
		if m.state.Busy() {
			return m, nil
		}
		return m.submit()

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	// Input is disabled while a request is outstanding.
	if m.state.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SUBMIT / STOP
// =============================================================================

// submit sends the input text. Blank input is ignored and left in place.
func (m Model) submit() (tea.Model, tea.Cmd) {
	gen, err := m.state.Begin(m.cancelMgr.context(), m.input.Value())
	if errors.Is(err, session.ErrEmptyInput) {
		return m, nil
	}
	if err != nil {
		logging.L.Debug("submit ignored", "error", err)
		return m, nil
	}

	m.notice = ""
	m.input.Reset()
	m.input.Blur()
	m.buffer.Reset()
	m.streamGen = gen.ID
	m.refreshViewport(true)

	cmds := []tea.Cmd{m.runner.Run(gen), m.spinner.Tick}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, streamTickCmd())
	}
	return m, tea.Batch(cmds...)
}

// stop ends the generation locally at once and sends the remote
// cancellation in the background.
func (m Model) stop() (tea.Model, tea.Cmd) {
	if content, ok := m.buffer.ForceFlush(); ok {
		m.state.AppendChunk(m.streamGen, content)
	}
	requestID := m.state.Stop()

	m.input.Focus()
	m.refreshViewport(true)

	if requestID == "" {
		return m, textinput.Blink
	}
	ctx := m.cancelMgr.context()
	client := m.client
	return m, tea.Batch(textinput.Blink, func() tea.Msg {
		session.CancelRemote(ctx, client, requestID)
		return StopSentMsg{RequestID: requestID}
	})
}

// =============================================================================
// HISTORY
// =============================================================================

func (m Model) loadHistoryCmd() tea.Cmd {
	ctx := m.cancelMgr.context()
	client := m.client
	return func() tea.Msg {
		h, err := client.LoadHistory(ctx)
		return HistoryLoadedMsg{History: h, Err: err}
	}
}

func (m Model) handleHistoryLoaded(msg HistoryLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logging.L.Error("failed to load chat history", "error", msg.Err)
		return m, nil
	}
	if msg.History == nil {
		return m, nil
	}
	m.state.ApplyHistory(msg.History)
	logging.L.Debug("chat history loaded", "messages", len(msg.History.Messages), "session_id", msg.History.SessionID)
	m.refreshViewport(true)
	return m, nil
}

// =============================================================================
// STREAMING
// =============================================================================

func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if msg.GenID != m.streamGen || !m.state.Busy() {
		return m, nil
	}
	m.buffer.Write(msg.Token)
	return m, nil
}

// handleStreamTick moves buffered chunks into the conversation at ~30fps.
func (m Model) handleStreamTick(_ StreamTickMsg) (tea.Model, tea.Cmd) {
	if content, ok := m.buffer.Flush(); ok {
		if m.state.AppendChunk(m.streamGen, content) {
			m.refreshViewport(true)
		}
	}
	if !m.state.Busy() {
		m.ticking = false
		return m, nil
	}
	return m, streamTickCmd()
}

// finish ends generation genID; err is nil on a normal end of stream.
func (m Model) finish(genID uint64, err error) (tea.Model, tea.Cmd) {
	if genID != m.streamGen {
		return m, nil
	}
	if content, ok := m.buffer.ForceFlush(); ok {
		m.state.AppendChunk(genID, content)
	}
	if !m.state.Finish(genID, err) {
		return m, nil
	}

	m.input.Focus()
	m.refreshViewport(true)
	return m, textinput.Blink
}

// =============================================================================
// EXPORT
// =============================================================================

// export saves the conversation as markdown. The reply must have ended so
// the file never holds a half-written message.
func (m Model) export() (tea.Model, tea.Cmd) {
	if m.state.Busy() {
		m.notice, m.noticeErr = "wait for the reply to finish", true
		return m, nil
	}
	t := export.NewTranscript(m.state.SessionID(), m.state.Messages())
	exporter := export.NewMarkdownExporter(nil)
	path := ""
	if m.exportDir != "" {
		path = filepath.Join(m.exportDir, export.Filename(t, exporter.FileExtension()))
	}
	return m, func() tea.Msg {
		written, err := export.ToFile(t, exporter, path)
		return ExportedMsg{Path: written, Err: err}
	}
}

func (m Model) handleExported(msg ExportedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		logging.L.Warn("transcript export failed", "error", msg.Err)
		m.notice, m.noticeErr = "export failed: "+msg.Err.Error(), true
		return m, nil
	}
	logging.L.Info("conversation exported", "path", msg.Path)
	m.notice, m.noticeErr = "saved "+msg.Path, false
	return m, nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// handleConfigReloaded applies UI and log settings. Backend settings take
// effect on the next start.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}
	logging.SetLevel(cfg.Log.Level)

	if cfg.UI.Theme != m.ui.Theme {
		m.theme = styles.NewTheme(cfg.UI.Theme)
		m.theme.SetSize(m.width, m.height)
		m.applyTheme()
	}
	m.ui = cfg.UI
	m.input.Placeholder = cfg.UI.Placeholder
	m.welcome.SetText(cfg.UI.Title, cfg.UI.Subtitle)

	logging.L.Info("configuration reloaded", "theme", cfg.UI.Theme)
	m.refreshViewport(m.viewport.AtBottom())
	return m, nil
}
