// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/calmistry/assistant-tui/internal/model"
	"github.com/calmistry/assistant-tui/internal/session"
	"github.com/calmistry/assistant-tui/internal/ui/components"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders messages (or the welcome banner), the input row and the
// status bar. Total height equals the terminal height.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var body string
	if m.isEmpty() {
		body = m.welcome.View()
	} else {
		body = m.viewport.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.renderInput(),
		m.renderStatusBar(),
	)
}

func (m Model) isEmpty() bool {
	empty := true
	m.state.View(func(conv *model.Conversation) {
		empty = conv.IsEmpty()
	})
	return empty
}

// refreshViewport re-renders the conversation into the viewport. Every
// change to the message sequence passes scroll=true.
func (m *Model) refreshViewport(scroll bool) {
	m.viewport.SetContent(m.renderMessages())
	if scroll {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Model) renderMessages() string {
	if m.width == 0 {
		return ""
	}

	var blocks []string
	keep := make(map[string]struct{})
	m.state.View(func(conv *model.Conversation) {
		for _, msg := range conv.Messages {
			keep[msg.ID] = struct{}{}
			blocks = append(blocks, m.renderMessage(msg))
		}
	})
	m.markdown.Forget(keep)

	if m.state.Phase() == session.PhaseLoading {
		blocks = append(blocks, m.renderThinking())
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg *model.Message) string {
	if msg.Role.IsUser() {
		return m.renderUserMessage(msg)
	}
	return m.renderAssistantMessage(msg)
}

// renderUserMessage shows the text literally, right-aligned. Control
// sequences are stripped so pasted escapes cannot repaint the terminal.
func (m *Model) renderUserMessage(msg *model.Message) string {
	text := ansi.Strip(msg.Content)
	maxWidth := m.theme.BubbleWidth()
	width := min(lipgloss.Width(text)+4, maxWidth)

	bubble := m.theme.UserBubble.Width(width - 2).Render(text)
	label := m.renderLabel(msg)
	block := lipgloss.JoinVertical(lipgloss.Right, label, bubble)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
}

// renderAssistantMessage renders the reply as markdown, left-aligned.
// Roles other than user land here too.
func (m *Model) renderAssistantMessage(msg *model.Message) string {
	label := m.renderLabel(msg)
	content := msg.GetDisplayContent()

	if msg.IsError {
		text := ansi.Strip(content)
		width := min(lipgloss.Width(text)+4, m.theme.BubbleWidth())
		return lipgloss.JoinVertical(lipgloss.Left, label, m.theme.ErrorBubble.Width(width-2).Render(text))
	}

	rendered := m.markdown.Render(msg.ID, content, m.wrapWidth())
	if msg.IsStreaming {
		rendered = lipgloss.JoinVertical(lipgloss.Left, rendered, m.spinner.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, label, m.theme.AssistantBubble.Render(rendered))
}

// renderThinking is the placeholder shown between submit and first output.
func (m *Model) renderThinking() string {
	label := m.theme.RoleLabel.Render(model.RoleAssistant.DisplayName())
	line := m.spinner.View() + " " + m.theme.Timestamp.Render(LabelThinking)
	return lipgloss.JoinVertical(lipgloss.Left, label, m.theme.AssistantBubble.Render(line))
}

func (m *Model) renderLabel(msg *model.Message) string {
	label := m.theme.RoleLabel.Render(msg.Role.DisplayName())
	if m.ui.ShowTimestamps && !msg.Timestamp.IsZero() {
		label += " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}
	return label
}

// wrapWidth is the markdown wrap width inside an assistant bubble.
func (m *Model) wrapWidth() int {
	width := m.theme.BubbleWidth() - 4
	if m.ui.WordWrap > 0 && m.ui.WordWrap < width {
		width = m.ui.WordWrap
	}
	return max(width, 20)
}

// =============================================================================
// INPUT ROW
// =============================================================================

func (m Model) renderButton() string {
	label := m.SubmitLabel()
	style := m.theme.ButtonSend
	switch label {
	case LabelThinking:
		style = m.theme.ButtonThinking
	case LabelStop:
		style = m.theme.ButtonStop
	}
	// Fixed width so the input does not jump between labels; padded to the
	// bordered input's height.
	return style.Padding(1, 2).Width(buttonWidth).Align(lipgloss.Center).Render(label)
}

// buttonWidth fits the longest label plus padding.
var buttonWidth = lipgloss.Width(LabelThinking) + 4

// inputBoxWidth is the outer width left for the input after the button.
func (m Model) inputBoxWidth() int {
	return max(m.width-buttonWidth-1, 10)
}

func (m Model) renderInput() string {
	container := m.theme.InputContainer
	if !m.InputEnabled() {
		container = m.theme.InputContainerDisabled
	}
	// Width excludes the border.
	box := container.Width(m.inputBoxWidth() - 2).Render(m.input.View())
	return lipgloss.JoinHorizontal(lipgloss.Center, box, " ", m.renderButton())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	bar := *m.statusBar

	switch m.state.Phase() {
	case session.PhaseLoading:
		bar.Status = components.StatusThinking
	case session.PhaseGenerating:
		bar.Status = components.StatusStreaming
	default:
		bar.Status = components.StatusReady
	}
	bar.SessionID = m.state.SessionID()
	m.state.View(func(conv *model.Conversation) {
		bar.MessageCount = conv.MessageCount()
	})
	bar.Shortcuts = m.keyMap.ShortHelp()
	switch {
	case m.notice != "" && m.noticeErr:
		bar.Notice = m.notice
	case m.notice != "":
		bar.Info = m.notice
	}
	return bar.View()
}
