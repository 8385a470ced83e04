// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), "line %q", sc.Text())
		lines = append(lines, m)
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestOpen_AppendsAcrossSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "chatbot.log")

	first, err := Open(path, "info")
	require.NoError(t, err)
	first.Logger.Info().Str("event", EventUserMessage).Msg("hello")
	require.NoError(t, first.Close())

	second, err := Open(path, "info")
	require.NoError(t, err)
	second.Logger.Info().Str("event", EventAssistantReply).Msg("hi there")
	require.NoError(t, second.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, EventUserMessage, lines[0]["event"])
	assert.Equal(t, "hello", lines[0]["message"])
	assert.Equal(t, EventAssistantReply, lines[1]["event"])
	assert.Contains(t, lines[1], "time")
}

func TestOpen_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.log")
	sink, err := Open(path, "warn")
	require.NoError(t, err)

	sink.Logger.Info().Msg("dropped")
	sink.Logger.Error().Str("event", EventInferenceError).Msg("kept")
	require.NoError(t, sink.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
}

func TestOpen_BadLevel(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.log"), "shouty")
	require.Error(t, err)
}

func TestTee_OnlyWarningsReachDiagnostics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.log")
	sink, err := Open(path, "info")
	require.NoError(t, err)

	var diag bytes.Buffer
	logger := sink.Tee(&diag, true)
	logger.Info().Str("event", EventUserMessage).Msg("quiet line")
	logger.Warn().Str("event", EventMemoryLoadError).Msg("memory file unreadable")
	require.NoError(t, sink.Close())

	assert.Len(t, readLines(t, path), 2)
	out := diag.String()
	assert.Contains(t, out, "memory file unreadable")
	assert.False(t, strings.Contains(out, "quiet line"))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"":        zerolog.InfoLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSinkClose_Nil(t *testing.T) {
	var s *Sink
	assert.NoError(t, s.Close())
}
