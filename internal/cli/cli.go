// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdMemory
	CmdArchive
	CmdConfig
	CmdVersion
	CmdHelp
)

func (c Command) String() string {
	switch c {
	case CmdChat:
		return "chat"
	case CmdMemory:
		return "memory"
	case CmdArchive:
		return "archive"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags. Zero values mean "not given" and leave config untouched.
	ConfigPath string
	Model      string
	MaxHistory int
	MemoryFile string
	LogFile    string
	Markdown   bool
	Archive    bool
	NoColor    bool
	SkipBanner bool
	Quiet      bool
	Verbose    bool

	// Raw holds the arguments after the command name.
	Raw []string
}

const usageText = `luna - a chat companion with a memory, running on a local Ollama model

Usage:
  luna [flags]                      Start chatting (default)
  luna chat [flags]                 Start chatting
  luna memory [show|clear|path]     Inspect the remembered conversation
  luna archive [list|search|stats]  Inspect the transcript archive
  luna config [show|path|check]     Show or check the effective configuration
  luna version                      Show version information
  luna help                         Show this help

Memory Commands:
  luna memory show                  Print the remembered turns (default)
    --full                          Do not truncate long turns
  luna memory clear --confirm       Forget the whole conversation
  luna memory path                  Print the memory file location

Archive Commands (requires [archive] enabled = true or --archive):
  luna archive list                 Show the most recent archived turns (default)
    --limit N                       Number of turns (default: 20, 0 = all)
  luna archive search QUERY         Find archived turns containing QUERY
  luna archive stats                Count archived sessions and turns

Config Commands:
  luna config show                  Print the effective configuration as TOML (default)
  luna config path                  Print the config file location
  luna config check                 Check that Ollama is reachable and the model is installed

Flags:
  --config PATH         Config file (default: ~/.luna/config.toml)
  -m, --model NAME      Ollama model (default: gemma2:9b)
  --max-history N       Turns to remember (default: 50)
  --memory-file PATH    Memory document location
  --log-file PATH       Event log location
  --markdown            Render replies as markdown on a terminal
  --archive             Record every turn in the transcript archive
  --no-color            Disable styled output
  --skip-banner         Do not print the startup banner
  -q, --quiet           Suppress status output
  -v, --verbose         Log at debug level

Environment:
  LUNA_HOME             Data directory (default: ~/.luna)
  LUNA_MODEL, LUNA_OLLAMA_URL, LUNA_MAX_HISTORY, LUNA_MEMORY_FILE,
  LUNA_LOG_FILE, LUNA_LOG_LEVEL, LUNA_ARCHIVE
  NO_COLOR              Disable styled output

Say goodbye (bye, see ya, farewell, ...) and luna ends the chat once it
says goodbye back.
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// VersionString returns the one-line version description.
func VersionString() string {
	return fmt.Sprintf("luna %s (commit %s, built %s, %s/%s)",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse parses command line arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}

	if len(remaining) == 0 {
		return CmdChat, args, nil
	}

	cmd := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch cmd {
	case "chat":
		if len(args.Raw) > 0 {
			return CmdChat, args, &UsageError{Msg: fmt.Sprintf("unexpected argument %q for chat", args.Raw[0])}
		}
		return CmdChat, args, nil
	case "memory", "mem":
		return CmdMemory, args, nil
	case "archive", "history":
		return CmdArchive, args, nil
	case "config":
		return CmdConfig, args, nil
	case "version", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, &UsageError{Msg: fmt.Sprintf("unknown command %q", cmd)}
	}
}

// parseGlobalFlags pulls global flags out of argv wherever they appear and
// returns the rest in order.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var (
		remaining []string
		parsed    Args
	)

	value := func(i *int, name string) (string, error) {
		arg := argv[*i]
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, nil
		}
		if *i+1 >= len(argv) {
			return "", &UsageError{Msg: name + " requires a value"}
		}
		*i++
		return argv[*i], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		name, _, _ := strings.Cut(arg, "=")

		var err error
		switch name {
		case "--config":
			parsed.ConfigPath, err = value(&i, name)
		case "-m", "--model":
			parsed.Model, err = value(&i, name)
		case "--memory-file":
			parsed.MemoryFile, err = value(&i, name)
		case "--log-file":
			parsed.LogFile, err = value(&i, name)
		case "--max-history":
			var v string
			if v, err = value(&i, name); err == nil {
				n, convErr := strconv.Atoi(v)
				if convErr != nil || n < 1 {
					err = &UsageError{Msg: fmt.Sprintf("--max-history must be a positive integer (got %q)", v)}
				}
				parsed.MaxHistory = n
			}
		case "--markdown":
			parsed.Markdown = true
		case "--archive":
			parsed.Archive = true
		case "--no-color":
			parsed.NoColor = true
		case "--skip-banner":
			parsed.SkipBanner = true
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		default:
			remaining = append(remaining, arg)
		}
		if err != nil {
			return nil, parsed, err
		}
	}

	return remaining, parsed, nil
}
