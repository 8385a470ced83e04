// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/luna/internal/memory"
	"github.com/jeranaias/luna/internal/util"
)

// HandleMemory implements "luna memory [show|clear|path]".
func HandleMemory(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw, "confirm", "full")
	cfg := env.Config

	switch sub := p.Subcommand(); sub {
	case "path":
		fmt.Fprintln(env.Stdout, cfg.Memory.File)
		return nil

	case "", "show", "list":
		store, err := memory.New(cfg.Memory.MaxHistory, cfg.Memory.File, memory.WithLogger(env.Logger))
		if err != nil {
			return &ConfigError{Err: err}
		}
		printTurns(env, store.Snapshot(), p.BoolFlag("full"))
		env.Printf("\n%s\n", env.Style(DimStyle, fmt.Sprintf("%d of up to %d turns, stored in %s", store.Len(), store.MaxHistory(), store.Path())))
		return nil

	case "clear", "reset":
		if !p.BoolFlag("confirm") {
			return &UsageError{Msg: "memory clear forgets the whole conversation; rerun with --confirm"}
		}
		store, err := memory.New(cfg.Memory.MaxHistory, cfg.Memory.File, memory.WithLogger(env.Logger))
		if err != nil {
			return &ConfigError{Err: err}
		}
		store.Clear()
		if err := store.LastSaveError(); err != nil {
			return &CommandError{Command: "memory", Action: "clear", Reason: "could not write memory file", Err: err}
		}
		env.Printf("%s Memory cleared.\n", env.Style(SuccessStyle, "✓"))
		return nil

	default:
		return &UsageError{Msg: fmt.Sprintf("unknown memory subcommand %q (want show, clear or path)", sub)}
	}
}

// printTurns renders one line per turn. Content is flattened to a single
// line and truncated to the terminal width unless full is set.
func printTurns(env *Env, turns []memory.Turn, full bool) {
	if len(turns) == 0 {
		fmt.Fprintln(env.Stdout, env.Style(DimStyle, "No conversation remembered yet."))
		return
	}

	width := GetTerminalWidth()
	for _, t := range turns {
		stamp := util.PadRight(t.Timestamp, len(memory.TimestampLayout))
		label := util.PadRight(string(t.Role), len("assistant"))

		content := t.Content
		if !full {
			content = util.TruncateWidth(util.OneLine(content), width-len(stamp)-len(label)-4)
		}

		fmt.Fprintf(env.Stdout, "%s  %s  %s\n",
			env.Style(DimStyle, stamp),
			env.Style(RoleStyle(string(t.Role)), label),
			content)
	}
}
