// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// farewellPhrases are matched as substrings, so "bye" also matches
// "goodbye" and "maybe later" counts as a farewell.
var farewellPhrases = []string{"bye", "goodbye", "see ya", "see you", "exit", "quit", "later", "adios", "farewell"}

// FarewellPhrases returns the phrases that count as saying goodbye.
func FarewellPhrases() []string {
	return slices.Clone(farewellPhrases)
}

// ContainsFarewell reports whether text contains any farewell phrase,
// ignoring case.
func ContainsFarewell(text string) bool {
	folded := cases.Fold().String(text)
	for _, phrase := range farewellPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}
