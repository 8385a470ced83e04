// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/luna/internal/memory"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func turn(role memory.Role, content string) memory.Turn {
	return memory.Turn{Role: role, Content: content, Timestamp: "2025-03-14 09:26 PM"}
}

func TestRecordAndRecent(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Record(ctx, "s1", turn(memory.RoleUser, fmt.Sprintf("msg %d", i))))
	}

	all, err := a.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "msg 0", all[0].Content)
	assert.Equal(t, "s1", all[0].SessionID)
	assert.Equal(t, memory.RoleUser, all[0].Role)
	assert.Equal(t, "2025-03-14 09:26 PM", all[0].Timestamp)
	assert.False(t, all[0].CreatedAt.IsZero())

	last, err := a.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "msg 3", last[0].Content)
	assert.Equal(t, "msg 4", last[1].Content)
}

func TestSearch(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, "s1", turn(memory.RoleUser, "What's the weather like?")))
	require.NoError(t, a.Record(ctx, "s1", turn(memory.RoleAssistant, "I can't check the WEATHER, sorry.")))
	require.NoError(t, a.Record(ctx, "s2", turn(memory.RoleUser, "100% sure_thing")))

	got, err := a.Search(ctx, "weather", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, memory.RoleAssistant, got[1].Role)

	got, err = a.Search(ctx, "0% s", 0)
	require.NoError(t, err)
	require.Len(t, got, 1, "wildcards match literally")

	got, err = a.Search(ctx, "h_t", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = a.Search(ctx, "   ", 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSessions(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, "s1", turn(memory.RoleUser, "a")))
	require.NoError(t, a.Record(ctx, "s1", turn(memory.RoleAssistant, "b")))
	require.NoError(t, a.Record(ctx, "s2", turn(memory.RoleUser, "c")))

	sessions, turns, err := a.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 3, turns)
}

func TestReopenKeepsTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Record(ctx, "s1", turn(memory.RoleUser, "persisted")))
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Content)
	assert.Equal(t, path, b.Path())
}

func TestClosed(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.ErrorIs(t, a.Record(context.Background(), "s", turn(memory.RoleUser, "x")), ErrClosed)
	_, err = a.Recent(context.Background(), 0)
	assert.ErrorIs(t, err, ErrClosed)

	var nilArchive *Archive
	assert.NoError(t, nilArchive.Close())
}
