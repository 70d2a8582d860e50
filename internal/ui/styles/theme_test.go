// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME CREATION TESTS
// =============================================================================

func TestNewTheme_Modes(t *testing.T) {
	tests := []struct {
		mode     string
		wantMode string
		wantDark bool
		glamour  string
	}{
		{"dark", ModeDark, true, "dark"},
		{"DARK ", ModeDark, true, "dark"},
		{"light", ModeLight, false, "light"},
	}

	for _, tc := range tests {
		theme := NewTheme(tc.mode)
		if theme.Mode != tc.wantMode {
			t.Errorf("NewTheme(%q).Mode = %q, want %q", tc.mode, theme.Mode, tc.wantMode)
		}
		if theme.IsDark != tc.wantDark {
			t.Errorf("NewTheme(%q).IsDark = %v, want %v", tc.mode, theme.IsDark, tc.wantDark)
		}
		if got := theme.GlamourStyle(); got != tc.glamour {
			t.Errorf("NewTheme(%q).GlamourStyle() = %q, want %q", tc.mode, got, tc.glamour)
		}
		if lipgloss.HasDarkBackground() != tc.wantDark {
			t.Errorf("NewTheme(%q) did not pin lipgloss background", tc.mode)
		}
	}
}

func TestNewTheme_UnknownModeIsAuto(t *testing.T) {
	theme := NewTheme("neon")
	if theme.Mode != ModeAuto {
		t.Errorf("Mode = %q, want %q", theme.Mode, ModeAuto)
	}
}

func TestThemeInitStyles(t *testing.T) {
	theme := NewTheme("dark")

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"WelcomeTitle", theme.WelcomeTitle},
		{"UserBubble", theme.UserBubble},
		{"AssistantBubble", theme.AssistantBubble},
		{"ErrorBubble", theme.ErrorBubble},
		{"InputContainer", theme.InputContainer},
		{"ButtonSend", theme.ButtonSend},
		{"ButtonThinking", theme.ButtonThinking},
		{"ButtonStop", theme.ButtonStop},
		{"StatusBar", theme.StatusBar},
	}

	for _, s := range styles {
		rendered := s.style.Render("test")
		if !strings.Contains(rendered, "test") {
			t.Errorf("%s style lost its content: %q", s.name, rendered)
		}
	}
}

// =============================================================================
// THEME SIZE TESTS
// =============================================================================

func TestThemeSetSize(t *testing.T) {
	theme := NewTheme("dark")

	tests := []struct {
		width  int
		height int
	}{
		{80, 24},
		{120, 40},
		{40, 10},
	}

	for _, tc := range tests {
		theme.SetSize(tc.width, tc.height)
		if theme.Width != tc.width || theme.Height != tc.height {
			t.Errorf("SetSize(%d, %d) = %dx%d", tc.width, tc.height, theme.Width, theme.Height)
		}
	}
}

func TestThemeGetLayoutMode(t *testing.T) {
	theme := NewTheme("dark")

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	for _, tc := range tests {
		theme.SetSize(tc.width, 24)
		if got := theme.GetLayoutMode(); got != tc.want {
			t.Errorf("GetLayoutMode() with width %d = %v, want %v", tc.width, got, tc.want)
		}
	}
}

func TestThemeBubbleWidth(t *testing.T) {
	theme := NewTheme("dark")

	tests := []struct {
		width int
		want  int
	}{
		{5, 10},
		{40, 38},
		{80, 68},
		{120, 90},
	}

	for _, tc := range tests {
		theme.SetSize(tc.width, 24)
		if got := theme.BubbleWidth(); got != tc.want {
			t.Errorf("BubbleWidth() at width %d = %d, want %d", tc.width, got, tc.want)
		}
	}
}
