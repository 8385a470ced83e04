// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive keeps an unbounded SQLite transcript of every stored turn.
//
// Conversation memory evicts old turns; the archive keeps them. It is written
// alongside memory, never read back into a session, and inspected with
// `luna archive`.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/luna/internal/memory"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed     = errors.New("archive is closed")
	ErrEmptyQuery = errors.New("search query is empty")
)

// Schema creates the transcript table.
const Schema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);
`

// =============================================================================
// ARCHIVE
// =============================================================================

// Entry is one archived turn.
type Entry struct {
	ID        int64
	SessionID string
	Role      memory.Role
	Content   string
	Timestamp string
	CreatedAt time.Time
}

// Archive is an append-only transcript backed by SQLite.
type Archive struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=2000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Archive{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file location.
func (a *Archive) Path() string {
	return a.path
}

// Close closes the database. It is safe to call on a nil Archive.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Record appends turn to the transcript under sessionID.
func (a *Archive) Record(ctx context.Context, sessionID string, turn memory.Turn) error {
	if a.db == nil {
		return ErrClosed
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, timestamp, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Content, turn.Timestamp, a.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive turn: %w", err)
	}
	return nil
}

// Recent returns the last limit turns, oldest first. A limit of 0 or less
// returns everything.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if a.db == nil {
		return nil, ErrClosed
	}

	query := `SELECT id, session_id, role, content, timestamp, created_at FROM turns ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	entries, err := a.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

// Search returns turns whose content contains query, ignoring ASCII case,
// oldest first, capped at limit when limit > 0.
func (a *Archive) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if a.db == nil {
		return nil, ErrClosed
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	sqlQuery := `SELECT id, session_id, role, content, timestamp, created_at FROM turns
		WHERE content LIKE ? ESCAPE '\' ORDER BY id DESC`
	args := []any{"%" + escapeLike(query) + "%"}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}

	entries, err := a.query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

// Sessions returns the number of distinct sessions and turns archived.
func (a *Archive) Sessions(ctx context.Context) (sessions, turns int, err error) {
	if a.db == nil {
		return 0, 0, ErrClosed
	}
	row := a.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id), COUNT(*) FROM turns`)
	if err := row.Scan(&sessions, &turns); err != nil {
		return 0, 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return sessions, turns, nil
}

func (a *Archive) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			role    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &role, &e.Content, &e.Timestamp, &created); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		e.Role = memory.Role(role)
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
