// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the assistant TUI.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/calmistry/assistant-tui/internal/ui/styles"
)

// =============================================================================
// WELCOME BANNER
// =============================================================================

// Welcome is the banner shown while the conversation is empty.
type Welcome struct {
	title    string
	subtitle string
	hint     string

	// Dimensions
	width  int
	height int

	theme *styles.Theme
}

// NewWelcome creates a welcome banner.
func NewWelcome(theme *styles.Theme, title, subtitle string) Welcome {
	return Welcome{
		title:    title,
		subtitle: subtitle,
		hint:     "Enter to send  Esc to stop  Ctrl+C to quit",
		theme:    theme,
	}
}

// SetText replaces the title and subtitle.
func (w *Welcome) SetText(title, subtitle string) {
	w.title = title
	w.subtitle = subtitle
}

// SetTheme swaps the theme after a config reload.
func (w *Welcome) SetTheme(theme *styles.Theme) {
	w.theme = theme
}

// SetSize updates the dimensions.
func (w *Welcome) SetSize(width, height int) {
	w.width = width
	w.height = height
}

// View renders the banner centered in the available area.
func (w Welcome) View() string {
	width := w.width
	if width == 0 {
		width = 80
	}
	height := w.height
	if height == 0 {
		height = 24
	}

	boxWidth := 62
	if boxWidth > width-4 {
		boxWidth = width - 4
	}
	if boxWidth < 20 {
		boxWidth = 20
	}

	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
	inner := boxWidth - 2
	body := lipgloss.JoinVertical(lipgloss.Center,
		w.theme.WelcomeTitle.Width(inner).Align(lipgloss.Center).Render(w.title),
		"",
		w.theme.WelcomeSubtitle.Width(inner).Align(lipgloss.Center).Render(w.subtitle),
	)
	box := w.theme.WelcomeBox.Width(boxWidth).Render(body)
	if width >= 50 {
		box = lipgloss.JoinVertical(lipgloss.Center, box, "", hintStyle.Render(w.hint))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
