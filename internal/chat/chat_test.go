// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"example", "Hi\\nthere\n\n\nhow are you?", "Hi there\nhow are you?"},
		{"plain", "Hello!", "Hello!"},
		{"surrounding whitespace", "  \n Hello! \t\n", "Hello!"},
		{"single newlines kept", "one\ntwo\nthree", "one\ntwo\nthree"},
		{"whitespace only lines", "one\n   \n\t\ntwo", "one\ntwo"},
		{"crlf blank line", "one\r\n\r\ntwo", "one\r\ntwo"},
		{"escaped only", `a\nb\nc`, "a b c"},
		{"empty", "", ""},
		{"only whitespace", " \n\n ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanReply(tc.in))
		})
	}
}

func TestContainsFarewell(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"bye", true},
		{"Goodbye Luna!", true},
		{"OK, SEE YA tomorrow", true},
		{"see you soon", true},
		{"I want to exit", true},
		{"quit", true},
		{"talk to you later", true},
		{"Adios amigo", true},
		{"Farewell, friend", true},
		{"maybe", false},
		{"hello there", false},
		{"", false},
		{"seeya", false},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, ContainsFarewell(tc.text))
		})
	}
}

func TestFarewellPhrases_IsACopy(t *testing.T) {
	phrases := FarewellPhrases()
	require.Contains(t, phrases, "bye")
	phrases[0] = "changed"
	assert.Equal(t, "bye", FarewellPhrases()[0])
}

func TestPreamble(t *testing.T) {
	now := time.Date(2025, time.March, 7, 9, 5, 0, 0, time.UTC)

	p := Preamble("Luna", now)
	assert.Contains(t, p, "Your name is Luna.")
	assert.Contains(t, p, "The current time is 09:05 AM on Friday, March 07, 2025.")
	assert.True(t, strings.HasPrefix(p, "Always respond in dialogue only"))

	assert.Contains(t, Preamble("", now), "Your name is Luna.")
	assert.Contains(t, Preamble("Nova", now), "Your name is Nova.")
}
