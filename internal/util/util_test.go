// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the luna packages.
package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	require.NoError(t, AtomicWriteFile(path, []byte("[]"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory", "deep", "bot_memory.json")

	require.NoError(t, AtomicWriteFile(path, []byte("x"), 0644))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	require.NoError(t, AtomicWriteFile(path, []byte("a much longer initial document"), 0644))
	require.NoError(t, AtomicWriteFile(path, []byte("short"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "short", string(content), "old bytes must not survive a shorter rewrite")
}

func TestAtomicWriteFile_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")

	for i := 0; i < 3; i++ {
		require.NoError(t, AtomicWriteFile(path, []byte("data"), 0644))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "memory.json", entries[0].Name())
}

func TestAtomicWriteFile_TargetIsDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	require.NoError(t, os.Mkdir(target, 0755))
	// A non-empty directory cannot be replaced by a rename on any platform.
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), []byte("x"), 0644))

	err := AtomicWriteFile(target, []byte("data"), 0644)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file %s left behind", e.Name())
	}
}

// =============================================================================
// PATH TESTS
// =============================================================================

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/logs/chatbot.log", filepath.Join(home, "logs", "chatbot.log")},
		{"/var/lib/luna", "/var/lib/luna"},
		{"relative/path", "relative/path"},
		{"~user/x", "~user/x"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ExpandHome(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ascii cut", "hello world", 8, "hello..."},
		{"zero width", "hello", 0, ""},
		{"tiny width", "hello", 2, "he"},
		{"wide runes", "日本語テキスト", 7, "日本..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TruncateWidth(tc.in, tc.width))
		})
	}
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "Hi there how are you?", OneLine("Hi there\n\nhow   are\tyou?\n"))
	assert.Equal(t, "", OneLine(" \n "))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "abcdef", PadRight("abcdef", 3))
}
