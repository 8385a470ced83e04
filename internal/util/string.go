// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: Width-aware truncation keeps CJK and emoji columns aligned in
// listings and never splits a multi-byte character.

// TruncateWidth truncates s to at most maxWidth terminal columns.
// When s is shortened and there is room, "..." is appended inside the limit.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads s with spaces up to width terminal columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// OneLine collapses every whitespace run, line breaks included, to a single
// space so multi-line content fits on one row.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
