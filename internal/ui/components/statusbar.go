// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/calmistry/assistant-tui/internal/ui/styles"
	"github.com/calmistry/assistant-tui/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// Status represents what the chat view is doing.
type Status int

const (
	StatusReady Status = iota
	StatusThinking
	StatusStreaming
	StatusError
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusThinking:
		return "Thinking..."
	case StatusStreaming:
		return "Streaming..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a shape for the status so it reads without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Active
	case StatusThinking:
		return styles.StatusIndicators.Pending
	case StatusStreaming:
		return "~"
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar is the single line under the input.
type StatusBar struct {
	Status       Status
	SessionID    string
	MessageCount int
	// Shortcuts are listed on the right when there is nothing else to say.
	Shortcuts []key.Binding
	// Notice is shown in place of the shortcuts, e.g. a failed export.
	Notice string
	// Info is a neutral message shown the same way, e.g. a saved file path.
	Info  string
	Width int

	theme *styles.Theme
}

// NewStatusBar creates a StatusBar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Width:  80,
		theme:  theme,
	}
}

// SetWidth updates the status bar width
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetTheme swaps the theme after a config reload.
func (s *StatusBar) SetTheme(theme *styles.Theme) {
	s.theme = theme
}

// View renders the status bar at its width.
func (s *StatusBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders "[icon] N msgs".
func (s *StatusBar) viewNarrow() string {
	count := util.TruncateWidth(fmt.Sprintf(" %d msgs", s.MessageCount), max(s.Width-2-lipgloss.Width(s.Status.Icon()), 0))
	left := s.statusStyle().Render(s.Status.Icon()) + s.theme.StatusMuted.Render(count)
	return s.theme.StatusBar.Width(s.Width).Render(left)
}

// viewWide renders "[icon] Status | session abcd1234 | N messages    shortcuts".
func (s *StatusBar) viewWide() string {
	sep := s.theme.StatusMuted.Render(" | ")

	parts := []string{
		s.statusStyle().Render(s.Status.Icon() + " " + s.Status.String()),
	}
	if s.SessionID != "" {
		parts = append(parts, s.theme.StatusMuted.Render("session "+util.ShortID(s.SessionID, 8)))
	}
	parts = append(parts, s.theme.StatusMuted.Render(pluralize(s.MessageCount, "message")))
	left := strings.Join(parts, sep)

	var right string
	switch {
	case s.Notice != "":
		right = s.theme.StatusError.Render(s.Notice)
	case s.Info != "":
		right = s.theme.StatusMode.Render(s.Info)
	default:
		right = s.renderShortcuts()
	}

	// Two columns of padding belong to the StatusBar style.
	inner := s.Width - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return s.theme.StatusBar.Width(s.Width).Render(ansi.Truncate(left, inner, "..."))
	}
	return s.theme.StatusBar.Width(s.Width).Render(left + s.theme.StatusMuted.Render(strings.Repeat(" ", gap)) + right)
}

func (s *StatusBar) renderShortcuts() string {
	keyStyle := s.theme.StatusMode
	desc := s.theme.StatusMuted

	shortcuts := make([]string, 0, len(s.Shortcuts))
	for _, b := range s.Shortcuts {
		if !b.Enabled() {
			continue
		}
		help := b.Help()
		shortcuts = append(shortcuts, keyStyle.Render(help.Key)+desc.Render(" "+help.Desc))
	}
	return strings.Join(shortcuts, desc.Render("  "))
}

func (s *StatusBar) statusStyle() lipgloss.Style {
	switch s.Status {
	case StatusThinking:
		return s.theme.StatusMuted.Foreground(styles.Amber)
	case StatusStreaming:
		return s.theme.StatusMode
	case StatusError:
		return s.theme.StatusError
	default:
		return s.theme.StatusMode
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
