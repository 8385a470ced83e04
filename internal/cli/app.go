// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/luna/internal/config"
	"github.com/jeranaias/luna/internal/logging"
)

// Env carries everything a command needs. It replaces package globals:
// main builds one per process and commands receive it explicitly.
type Env struct {
	Config *config.Config
	Args   Args

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger zerolog.Logger
	Color  bool

	sink *logging.Sink
}

// NewEnv loads configuration, applies flag overrides and opens the log sink.
func NewEnv(args Args, stdin io.Reader, stdout, stderr io.Writer) (*Env, error) {
	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if err := applyFlagOverrides(cfg, args); err != nil {
		return nil, &ConfigError{Err: err}
	}

	env := &Env{
		Config: cfg,
		Args:   args,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Color:  !args.NoColor && ColorsEnabled(cfg.UI.Color),
	}
	ApplyColorProfile(env.Color)

	sink, err := logging.Open(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		// The event log is a diagnostic aid; chatting works without it.
		fmt.Fprintf(stderr, "Warning: event log unavailable: %v\n", err)
		env.Logger = logging.Nop()
		return env, nil
	}
	env.sink = sink
	env.Logger = sink.Tee(stderr, !env.Color)
	return env, nil
}

// applyFlagOverrides layers command line flags over the loaded config and
// re-validates the result.
func applyFlagOverrides(cfg *config.Config, args Args) error {
	if args.Model != "" {
		cfg.Model.Name = args.Model
	}
	if args.MaxHistory > 0 {
		cfg.Memory.MaxHistory = args.MaxHistory
	}
	if args.MemoryFile != "" {
		cfg.Memory.File = args.MemoryFile
	}
	if args.LogFile != "" {
		cfg.Log.File = args.LogFile
	}
	if args.Markdown {
		cfg.UI.Markdown = true
	}
	if args.Archive {
		cfg.Archive.Enabled = true
	}
	if args.NoColor {
		cfg.UI.Color = false
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.ExpandPaths(); err != nil {
		return err
	}
	return cfg.Validate()
}

// Close releases the log sink.
func (e *Env) Close() error {
	return e.sink.Close()
}

// Printf writes status output unless --quiet is set.
func (e *Env) Printf(format string, a ...any) {
	if e.Args.Quiet {
		return
	}
	fmt.Fprintf(e.Stdout, format, a...)
}

// Style renders text with style when colors are enabled.
func (e *Env) Style(style lipgloss.Style, text string) string {
	if !e.Color {
		return text
	}
	return style.Render(text)
}

// HistoryFile is where the interactive prompt keeps its input history.
func (e *Env) HistoryFile() string {
	return filepath.Join(filepath.Dir(e.Config.Memory.File), "input_history")
}

// Run dispatches a parsed command.
func Run(ctx context.Context, cmd Command, args Args, stdin io.Reader, stdout, stderr io.Writer) error {
	switch cmd {
	case CmdHelp:
		PrintUsage(stdout)
		return nil
	case CmdVersion:
		fmt.Fprintln(stdout, VersionString())
		return nil
	}

	env, err := NewEnv(args, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	switch cmd {
	case CmdChat:
		return HandleChat(ctx, env)
	case CmdMemory:
		return HandleMemory(ctx, env)
	case CmdArchive:
		return HandleArchive(ctx, env)
	case CmdConfig:
		return HandleConfig(ctx, env)
	default:
		return &UsageError{Msg: fmt.Sprintf("unsupported command %s", cmd)}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return f == os.Stdout && IsStdoutTTY() || f == os.Stderr && IsStderrTTY()
}
