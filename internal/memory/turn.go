// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

// Role identifies who produced a turn.
type Role string

const (
	// RoleSystem is only ever synthesized for the preamble; it is never stored.
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Storable reports whether turns with this role may be kept in a Store.
func (r Role) Storable() bool {
	return r == RoleUser || r == RoleAssistant
}

const (
	// TimestampLayout is the human-readable creation time format, e.g. "2025-03-14 09:26 PM".
	TimestampLayout = "2006-01-02 03:04 PM"

	// UnknownTimestamp marks legacy records saved before timestamps existed.
	UnknownTimestamp = "Unknown"
)

// Turn is one utterance in the conversation.
type Turn struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// record is the on-disk shape. Pointers distinguish absent fields from empty ones.
type record struct {
	Role      *string `json:"role"`
	Content   *string `json:"content"`
	Timestamp *string `json:"timestamp"`
}
