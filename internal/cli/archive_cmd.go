// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jeranaias/luna/internal/archive"
	"github.com/jeranaias/luna/internal/memory"
	"github.com/jeranaias/luna/internal/util"
)

const defaultArchiveLimit = 20

// HandleArchive implements "luna archive [list|search QUERY|stats]".
func HandleArchive(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw, "full")
	cfg := env.Config

	if _, err := os.Stat(cfg.Archive.Path); errors.Is(err, fs.ErrNotExist) {
		if !cfg.Archive.Enabled {
			return &CommandError{Command: "archive", Action: p.Subcommand(), Reason: "the archive is disabled; enable [archive] in config.toml or pass --archive"}
		}
		fmt.Fprintln(env.Stdout, env.Style(DimStyle, "The archive is empty."))
		return nil
	}

	arc, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return &CommandError{Command: "archive", Action: "open", Reason: cfg.Archive.Path, Err: err}
	}
	defer arc.Close()

	limit, err := p.IntFlag(defaultArchiveLimit, "limit", "n")
	if err != nil {
		return err
	}

	switch sub := p.Subcommand(); sub {
	case "", "list", "recent":
		entries, err := arc.Recent(ctx, limit)
		if err != nil {
			return &CommandError{Command: "archive", Action: "list", Reason: "query failed", Err: err}
		}
		printEntries(env, entries, p.BoolFlag("full"))
		return nil

	case "search", "find":
		query := p.Rest(1)
		if query == "" {
			return &UsageError{Msg: "archive search needs a QUERY"}
		}
		entries, err := arc.Search(ctx, query, limit)
		if err != nil {
			return &CommandError{Command: "archive", Action: "search", Reason: "query failed", Err: err}
		}
		printEntries(env, entries, p.BoolFlag("full"))
		return nil

	case "stats":
		sessions, turns, err := arc.Sessions(ctx)
		if err != nil {
			return &CommandError{Command: "archive", Action: "stats", Reason: "query failed", Err: err}
		}
		printField(env, "Path", arc.Path())
		printField(env, "Sessions", fmt.Sprint(sessions))
		printField(env, "Turns", fmt.Sprint(turns))
		return nil

	default:
		return &UsageError{Msg: fmt.Sprintf("unknown archive subcommand %q (want list, search or stats)", sub)}
	}
}

// printEntries prints archived turns grouped under a header per session.
func printEntries(env *Env, entries []archive.Entry, full bool) {
	if len(entries) == 0 {
		fmt.Fprintln(env.Stdout, env.Style(DimStyle, "No archived turns match."))
		return
	}

	var (
		session string
		group   []memory.Turn
	)
	flush := func() {
		if len(group) == 0 {
			return
		}
		fmt.Fprintln(env.Stdout, env.Style(DimStyle, "session "+shortID(session)))
		printTurns(env, group, full)
		group = group[:0]
	}

	for _, e := range entries {
		if e.SessionID != session {
			flush()
			session = e.SessionID
		}
		group = append(group, memory.Turn{Role: e.Role, Content: e.Content, Timestamp: e.Timestamp})
	}
	flush()

	env.Printf("\n%s\n", env.Style(DimStyle, fmt.Sprintf("%d archived turns", len(entries))))
}

func printField(env *Env, label, value string) {
	fmt.Fprintf(env.Stdout, "%s%s\n", env.Style(LabelStyle, util.PadRight(label, 16)), value)
}

// shortID returns the first block of a session uuid.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
