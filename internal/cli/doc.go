// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the luna command line: argument parsing, the
// interactive chat REPL and the memory, archive and config inspection
// commands.
//
// # Commands
//
//	luna                        Start chatting (same as "luna chat")
//	luna chat                   Start chatting
//	luna memory [show|clear|path]
//	luna archive [list|search QUERY|stats]
//	luna config [show|path|check]
//	luna version
//	luna help
//
// All commands return errors instead of exiting; main maps them to exit
// codes with ExitCode.
package cli
