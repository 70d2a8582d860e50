// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the state owned by one chat view.
//
// A State carries the conversation, the session identifier adopted from the
// history service, the request identifier of the generation in flight, and
// the phase machine:
//
//	idle --submit--> loading --first content--> generating
//	loading/generating --finish|stop--> idle
//
// Both front ends (the Bubble Tea view and the plain REPL) drive the same
// State, so submit, stream, finish and stop behave identically in each.
//
// # Usage
//
//	st := session.New()
//	_ = st.LoadHistory(ctx, client)
//	gen, err := st.Begin(ctx, "hello")
//	stream, err := client.Infer(gen.Context(), gen.Request)
//	st.AppendChunk(gen.ID, "Hi")
//	st.Finish(gen.ID, nil)
package session
