// luna - a chat companion with a bounded memory, backed by a local Ollama model.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/luna/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cli.PrintUsage(os.Stderr)
		return cli.ExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cli.Run(ctx, cmd, args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var usage *cli.UsageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, "Run 'luna help' for usage.")
		}
	}
	return cli.ExitCode(err)
}
