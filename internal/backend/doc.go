// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat-history and inference services.
//
// Three calls are exposed:
//
//   - LoadHistory: GET the prior conversation and its session identifier
//   - Infer: POST a user message and receive the reply as a lazy Stream
//   - Cancel: DELETE an in-flight generation addressed by its request identifier
//
// Failures are returned as *ClientError values carrying an ErrorType.
//
// # Usage
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: "http://localhost:3000"})
//	history, err := client.LoadHistory(ctx)
//	stream, err := client.Infer(ctx, backend.InferenceRequest{Message: "hi", SessionID: history.SessionID})
//	defer stream.Close()
//	err = stream.Process(ctx, func(c backend.StreamChunk) { fmt.Print(c.Content) })
package backend
