// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API.
//
// Only the non-streaming surface is implemented: a reachability probe,
// model listing and lookup, and /api/chat with stream disabled. A chat
// call is a single blocking request; the caller bounds it with a context
// or with ClientConfig.Timeout.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{DefaultModel: "gemma2:9b"})
//	resp, err := client.Chat(ctx, "", []ollama.Message{
//	    ollama.NewSystemMessage("You are Luna."),
//	    ollama.NewUserMessage("Hello"),
//	})
//	if ollama.IsNotRunning(err) {
//	    // start ollama serve
//	}
//	fmt.Println(resp.Message.Content)
package ollama
