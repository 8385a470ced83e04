// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"regexp"
	"strings"
)

var blankLineRuns = regexp.MustCompile(`\n\s*\n`)

// CleanReply normalizes raw model output for display and storage.
//
// The escaped sequence `\n` (backslash, n) becomes a space, every newline
// run containing only whitespace collapses to a single newline, and the
// result is trimmed.
func CleanReply(raw string) string {
	s := strings.ReplaceAll(raw, `\n`, " ")
	s = blankLineRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
