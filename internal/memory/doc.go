// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory provides the bounded, persisted conversation memory for luna.
//
// A Store keeps the most recent turns of a conversation, oldest first, and
// never holds more than its configured capacity: each Append drops turns from
// the head until the bound holds again. Every mutation rewrites the whole JSON
// document on disk before returning, so the file always mirrors memory.
//
// # Key Types
//
//   - Turn: One role-tagged utterance with content and timestamp
//   - Store: The bounded, write-through sequence of turns
//
// # Failure Handling
//
// A missing memory file starts an empty conversation. An unreadable or
// malformed file is logged and also starts empty. Save failures are logged
// and remembered in LastSaveError; the in-memory sequence stays authoritative.
// Neither path ever returns an error to the chat loop.
//
// # Usage
//
//	store, err := memory.New(50, "/home/me/.luna/memory/bot_memory.json",
//	    memory.WithLogger(logger))
//	if err != nil {
//	    return err // only an invalid capacity fails
//	}
//	store.Append(memory.RoleUser, "hello")
//	for _, t := range store.Snapshot() {
//	    fmt.Println(t.Timestamp, t.Role, t.Content)
//	}
package memory
