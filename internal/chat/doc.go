// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the conversation loop between the user, the bounded
// memory store and the inference backend.
//
// Each turn appends the user's text to memory, sends the system preamble
// followed by the remembered turns to the model, cleans up the reply,
// remembers it, and decides whether the conversation is over. A session
// ends only when the user says goodbye and the model says goodbye back.
//
// # Key Types
//
//   - Session: The per-process conversation state machine
//   - Inferer: The inference collaborator (satisfied by *ollama.Client)
//   - Outcome: What one turn produced
//   - LineReader: Source of user input lines for Run
package chat
