// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the small display pieces around the chat view.

Welcome (welcome.go) is the centered banner shown while the conversation is
empty. It carries the configured title and subtitle.

StatusBar (statusbar.go) is the bottom line: an icon and label for the
current Status, the shortened session ID, the message count, and either the
key shortcuts, a Notice or an Info line. Below 60 columns it collapses to the icon and the
count.

	bar := components.NewStatusBar(theme)
	bar.SetWidth(width)
	bar.Status = components.StatusThinking
	line := bar.View()
*/
package components
