// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat view for the assistant TUI.

The view loads the conversation history once on start, sends what the user
types to the inference endpoint, streams the reply into a growing assistant
message and lets the user stop a reply in progress.

# Key Components

## Model (model.go)

Model is a Bubble Tea model wrapping a session.State, which owns the
messages, the session and request identifiers and the idle, loading and
generating phases. The submit control reads "Send", "Thinking..." or
"Stop" depending on the phase.

## Update Loop (update.go)

  - Enter submits; blank input is ignored
  - Esc stops a request in flight; Ctrl+C stops when busy and quits when idle
  - Ctrl+D on an empty input quits
  - Ctrl+S saves the conversation as markdown once the reply has ended
  - Arrow keys, PgUp/PgDn and Ctrl+Home/End scroll the transcript

Keystrokes do not reach the input while a request is outstanding.

## Streaming (streaming.go)

StreamRunner performs the inference call in a command goroutine and pushes
each chunk into the program with Send. Chunks collect in a StreamingBuffer
that the ~30fps StreamTickMsg drains into the conversation. Messages from a
stopped generation carry a stale generation ID and are dropped.

## View Rendering (view.go, markdown.go)

User turns are shown literally with control sequences stripped, right
aligned. Assistant turns are rendered as markdown through glamour. An empty
conversation shows the welcome banner.

# Usage

	client := backend.NewClientWithConfig(cfg)
	view := chat.New(styles.NewTheme("auto"), client, uiConfig)
	p := tea.NewProgram(view, tea.WithAltScreen())
	view.Runner().SetSender(p)
	_, err := p.Run()
	view.Close()
*/
package chat
