// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/luna/internal/archive"
	"github.com/jeranaias/luna/internal/chat"
	"github.com/jeranaias/luna/internal/logging"
	"github.com/jeranaias/luna/internal/memory"
	"github.com/jeranaias/luna/internal/ollama"
)

// HandleChat runs the interactive conversation until both sides say goodbye.
func HandleChat(ctx context.Context, env *Env) error {
	cfg := env.Config

	store, err := memory.New(cfg.Memory.MaxHistory, cfg.Memory.File, memory.WithLogger(env.Logger))
	if err != nil {
		return &ConfigError{Err: err}
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Model.OllamaURL,
		Timeout:      time.Duration(cfg.Model.TimeoutSecs) * time.Second,
		DefaultModel: cfg.Model.Name,
	})

	opts := []chat.Option{
		chat.WithModel(cfg.Model.Name),
		chat.WithAssistantName(cfg.Assistant.Name),
		chat.WithLogger(env.Logger),
	}

	if cfg.Archive.Enabled {
		arc, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			env.Logger.Warn().
				Str("event", logging.EventArchiveError).
				Str("path", cfg.Archive.Path).
				Err(err).
				Msg("Transcript archive unavailable; continuing without it")
		} else {
			defer arc.Close()
			opts = append(opts, chat.WithRecorder(arc))
		}
	}

	if cfg.UI.Markdown && isTerminal(env.Stdout) {
		if r, err := NewMarkdownRenderer(GetTerminalWidth() - 4); err == nil {
			opts = append(opts, chat.WithReplyFormatter(r.Render))
		}
	}

	if !env.Args.SkipBanner {
		printBanner(env, store)
	}
	if err := client.CheckRunning(ctx); err != nil {
		fmt.Fprintln(env.Stderr, env.Style(WarningStyle, fmt.Sprintf(
			"Warning: Ollama is not reachable at %s (%v). Start it with 'ollama serve'; replies will fail until then.",
			client.BaseURL(), err)))
	}

	session := chat.NewSession(store, client, opts...)

	var reader chat.LineReader
	if f, ok := env.Stdin.(*os.File); ok && f == os.Stdin && IsTTY() {
		cli := NewChatCLI(env.HistoryFile())
		defer cli.Close()
		reader = cli
	} else {
		reader = NewScannerReader(env.Stdin, env.Stdout)
	}

	err = session.Run(ctx, reader, env.Stdout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		env.Printf("\n%s\n", env.Style(DimStyle, "Input closed; the conversation is saved for next time."))
		return err
	case errors.Is(err, context.Canceled):
		env.Printf("\n%s\n", env.Style(DimStyle, "Interrupted; the conversation is saved for next time."))
		return nil
	default:
		return err
	}
}

func printBanner(env *Env, store *memory.Store) {
	cfg := env.Config
	phrases := chat.FarewellPhrases()

	title := fmt.Sprintf("Your AI Assistant %s (%s) is now running.", cfg.Assistant.Name, cfg.Model.Name)
	hint := fmt.Sprintf("(Type a goodbye message like '%s' to quit.)", strings.Join(phrases[:3], "', '"))

	env.Printf("%s %s\n", env.Style(TitleStyle, title), env.Style(DimStyle, hint))
	if n := store.Len(); n > 0 {
		env.Printf("%s\n", env.Style(DimStyle, fmt.Sprintf("Remembering %d of up to %d turns.", n, store.MaxHistory())))
	}
}
