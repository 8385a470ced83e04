// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock that advances one minute per call.
func fixedClock() func() time.Time {
	t := time.Date(2025, time.March, 14, 21, 26, 0, 0, time.Local)
	return func() time.Time {
		now := t
		t = t.Add(time.Minute)
		return now
	}
}

func memoryPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "memory", "bot_memory.json")
}

func readDocument(t *testing.T, path string) []Turn {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var turns []Turn
	require.NoError(t, json.Unmarshal(data, &turns))
	return turns
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_InvalidMaxHistory(t *testing.T) {
	for _, n := range []int{0, -1, -50} {
		_, err := New(n, memoryPath(t))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMaxHistory))
	}
}

func TestNew_MissingFileStartsEmpty(t *testing.T) {
	path := memoryPath(t)
	var logs bytes.Buffer

	store, err := New(DefaultMaxHistory, path, WithLogger(zerolog.New(&logs)))
	require.NoError(t, err)

	assert.Empty(t, store.Snapshot())
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, logs.String(), "a missing file is not a diagnostic condition")

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "construction must not create the file")
}

func TestNew_CorruptFileStartsEmpty(t *testing.T) {
	tests := map[string]string{
		"truncated":     `[{"role": "user", "content": "hi"`,
		"garbage":       "not json at all",
		"object":        `{"role": "user", "content": "hi"}`,
		"wrong types":   `[{"role": 7, "content": true}]`,
		"bare string":   `"hello"`,
		"element types": `["user", "hello"]`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := memoryPath(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			var logs bytes.Buffer

			store, err := New(10, path, WithLogger(zerolog.New(&logs)))
			require.NoError(t, err)

			assert.Empty(t, store.Snapshot())
			assert.Contains(t, logs.String(), "memory_load_error")
		})
	}
}

func TestNew_UnreadablePathStartsEmpty(t *testing.T) {
	// A directory where the file should be cannot be read as a file
	path := t.TempDir()
	var logs bytes.Buffer

	store, err := New(10, path, WithLogger(zerolog.New(&logs)))
	require.NoError(t, err)
	assert.Empty(t, store.Snapshot())
	assert.Contains(t, logs.String(), "memory_load_error")
}

func TestNew_NullDocumentIsEmpty(t *testing.T) {
	path := memoryPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("null"), 0644))

	store, err := New(10, path)
	require.NoError(t, err)
	assert.Empty(t, store.Snapshot())
}

func TestNew_LegacyRecordWithoutTimestamp(t *testing.T) {
	path := memoryPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	legacy := `[
    {"role": "user", "content": "hello"},
    {"role": "assistant", "content": "hi!", "timestamp": "2024-11-02 08:15 AM"},
    {"role": "user", "content": "again", "timestamp": ""}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	store, err := New(10, path)
	require.NoError(t, err)

	got := store.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, Turn{Role: RoleUser, Content: "hello", Timestamp: UnknownTimestamp}, got[0])
	assert.Equal(t, "2024-11-02 08:15 AM", got[1].Timestamp)
	assert.Equal(t, UnknownTimestamp, got[2].Timestamp)

	// The patch is in memory only until the next append
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, legacy, string(data))
}

func TestNew_LegacyPatchBecomesDurableOnAppend(t *testing.T) {
	path := memoryPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`[{"role": "user", "content": "hello"}]`), 0644))

	store, err := New(10, path, WithClock(fixedClock()))
	require.NoError(t, err)
	store.Append(RoleAssistant, "hi")

	onDisk := readDocument(t, path)
	require.Len(t, onDisk, 2)
	assert.Equal(t, UnknownTimestamp, onDisk[0].Timestamp)
}

func TestNew_RecordsWithoutRoleAreDropped(t *testing.T) {
	path := memoryPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	doc := `[
    {"content": "orphan"},
    {"role": "system", "content": "old preamble"},
    {"role": "narrator", "content": "stage direction"},
    {"role": "user"},
    {"role": "assistant", "content": "kept", "timestamp": "2025-01-01 10:00 AM"}
]`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	var logs bytes.Buffer

	store, err := New(10, path, WithLogger(zerolog.New(&logs)))
	require.NoError(t, err)

	got := store.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, Turn{Role: RoleUser, Content: "", Timestamp: UnknownTimestamp}, got[0])
	assert.Equal(t, "kept", got[1].Content)
	assert.Equal(t, 3, strings.Count(logs.String(), "memory_record_dropped"))
}

func TestNew_OversizedFileKeepsMostRecent(t *testing.T) {
	path := memoryPath(t)
	big, err := New(20, path, WithClock(fixedClock()))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		big.Append(RoleUser, fmt.Sprintf("msg %d", i))
	}

	small, err := New(5, path)
	require.NoError(t, err)

	got := small.Snapshot()
	require.Len(t, got, 5)
	for i, turn := range got {
		assert.Equal(t, fmt.Sprintf("msg %d", 15+i), turn.Content)
	}
}

// =============================================================================
// APPEND / EVICTION
// =============================================================================

func TestAppend_BoundedLength(t *testing.T) {
	tests := []struct {
		appends    int
		maxHistory int
	}{
		{0, 1},
		{1, 1},
		{5, 1},
		{3, 10},
		{10, 10},
		{11, 10},
		{57, 10},
		{120, 50},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("N=%d/M=%d", tc.appends, tc.maxHistory), func(t *testing.T) {
			store, err := New(tc.maxHistory, memoryPath(t), WithClock(fixedClock()))
			require.NoError(t, err)

			for i := 0; i < tc.appends; i++ {
				role := RoleUser
				if i%2 == 1 {
					role = RoleAssistant
				}
				store.Append(role, fmt.Sprintf("turn %d", i))
				require.LessOrEqual(t, store.Len(), tc.maxHistory, "bound must hold after every append")
			}

			got := store.Snapshot()
			want := min(tc.appends, tc.maxHistory)
			require.Len(t, got, want)

			// Exactly the last M, in original order
			first := tc.appends - want
			for i, turn := range got {
				assert.Equal(t, fmt.Sprintf("turn %d", first+i), turn.Content)
			}
		})
	}
}

func TestAppend_StampsCreationTime(t *testing.T) {
	store, err := New(10, memoryPath(t), WithClock(fixedClock()))
	require.NoError(t, err)

	store.Append(RoleUser, "what time is it?")
	store.Append(RoleAssistant, "9:27 PM")

	got := store.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "2025-03-14 09:26 PM", got[0].Timestamp)
	assert.Equal(t, "2025-03-14 09:27 PM", got[1].Timestamp)
}

func TestAppend_TimestampNeverRecomputed(t *testing.T) {
	store, err := New(3, memoryPath(t), WithClock(fixedClock()))
	require.NoError(t, err)

	store.Append(RoleUser, "first")
	stamp := store.Snapshot()[0].Timestamp
	store.Append(RoleAssistant, "second")
	store.Append(RoleUser, "third")

	assert.Equal(t, stamp, store.Snapshot()[0].Timestamp)
}

func TestAppend_WriteThrough(t *testing.T) {
	path := memoryPath(t)
	store, err := New(3, path, WithClock(fixedClock()))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		store.Append(RoleUser, fmt.Sprintf("turn %d", i))
		assert.Equal(t, store.Snapshot(), readDocument(t, path), "disk must match memory after append %d", i)
		require.NoError(t, store.LastSaveError())
	}
}

func TestAppend_DocumentFormat(t *testing.T) {
	path := memoryPath(t)
	store, err := New(10, path, WithClock(fixedClock()))
	require.NoError(t, err)
	store.Append(RoleUser, "hi")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `[
    {
        "role": "user",
        "content": "hi",
        "timestamp": "2025-03-14 09:26 PM"
    }
]`
	assert.Equal(t, want, string(data))
}

func TestAppend_IgnoresNonStorableRoles(t *testing.T) {
	path := memoryPath(t)
	store, err := New(10, path)
	require.NoError(t, err)

	store.Append(RoleSystem, "preamble")
	store.Append(Role("tool"), "output")

	assert.Empty(t, store.Snapshot())
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestAppend_SaveFailureKeepsMemory(t *testing.T) {
	// The parent "directory" is a regular file, so every save fails
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	path := filepath.Join(blocker, "bot_memory.json")
	var logs bytes.Buffer

	store, err := New(2, path, WithLogger(zerolog.New(&logs)), WithClock(fixedClock()))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		store.Append(RoleUser, "one")
		store.Append(RoleAssistant, "two")
		store.Append(RoleUser, "three")
	})

	require.Error(t, store.LastSaveError())
	assert.Contains(t, logs.String(), "memory_save_error")

	got := store.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)
}

func TestAppend_SaveRecoversAfterFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "memory")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	path := filepath.Join(blocker, "bot_memory.json")

	store, err := New(5, path, WithClock(fixedClock()))
	require.NoError(t, err)
	store.Append(RoleUser, "lost write")
	require.Error(t, store.LastSaveError())

	require.NoError(t, os.Remove(blocker))
	store.Append(RoleAssistant, "durable again")
	require.NoError(t, store.LastSaveError())

	// The next successful save carries the whole sequence, including the turn whose write failed
	onDisk := readDocument(t, path)
	require.Len(t, onDisk, 2)
	assert.Equal(t, "lost write", onDisk[0].Content)
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestRoundTrip(t *testing.T) {
	path := memoryPath(t)
	store, err := New(4, path, WithClock(fixedClock()))
	require.NoError(t, err)

	contents := []string{"hello", "Hi! I'm Luna.", "multi\nline\n\ncontent", `quotes "and" \backslashes\`, "日本語", ""}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		store.Append(role, c)
	}
	before := store.Snapshot()

	reloaded, err := New(4, path)
	require.NoError(t, err)

	assert.Equal(t, before, reloaded.Snapshot())
}

func TestClear(t *testing.T) {
	path := memoryPath(t)
	store, err := New(4, path, WithClock(fixedClock()))
	require.NoError(t, err)
	store.Append(RoleUser, "hello")

	store.Clear()

	assert.Empty(t, store.Snapshot())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSnapshot_IsACopy(t *testing.T) {
	store, err := New(4, memoryPath(t), WithClock(fixedClock()))
	require.NoError(t, err)
	store.Append(RoleUser, "original")

	snap := store.Snapshot()
	snap[0].Content = "mutated"

	assert.Equal(t, "original", store.Snapshot()[0].Content)
}

func TestAccessors(t *testing.T) {
	path := memoryPath(t)
	store, err := New(7, path)
	require.NoError(t, err)

	assert.Equal(t, 7, store.MaxHistory())
	assert.Equal(t, path, store.Path())
	assert.NoError(t, store.LastSaveError())
}

func TestAppend_ReturnsStoredTurn(t *testing.T) {
	store, err := New(4, memoryPath(t), WithClock(fixedClock()))
	require.NoError(t, err)

	turn, ok := store.Append(RoleAssistant, "hello")
	require.True(t, ok)
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "hello", Timestamp: "2025-03-14 09:26 PM"}, turn)

	_, ok = store.Append(RoleSystem, "preamble")
	assert.False(t, ok)
}
