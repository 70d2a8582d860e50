// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the assistant TUI.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values:

	Teal     - Brand color, welcome title, send button
	Lavender - Assistant accent and spinner
	Amber    - Loading state
	Rose     - Errors and the stop button

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	theme.SetSize(width, height)
	bubble := theme.UserBubble.MaxWidth(theme.BubbleWidth())

NewTheme pins Lip Gloss to the chosen background so adaptive colors and the
glamour style named by GlamourStyle agree.
*/
package styles
