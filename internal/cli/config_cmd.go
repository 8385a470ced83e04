// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/luna/internal/config"
	"github.com/jeranaias/luna/internal/ollama"
)

// HandleConfig implements "luna config [show|path|check]".
func HandleConfig(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "show":
		fmt.Fprint(env.Stdout, env.Config.String())
		return nil

	case "path":
		path := env.Args.ConfigPath
		if path == "" {
			var err error
			if path, err = config.ConfigPathTOML(); err != nil {
				return &ConfigError{Err: err}
			}
		}
		fmt.Fprintln(env.Stdout, path)
		return nil

	case "check":
		return checkConfig(ctx, env)

	default:
		return &UsageError{Msg: fmt.Sprintf("unknown config subcommand %q (want show, path or check)", sub)}
	}
}

// checkConfig reports whether the configured backend and model are usable.
// The config itself already validated during load.
func checkConfig(ctx context.Context, env *Env) error {
	cfg := env.Config
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Model.OllamaURL,
		ProbeTimeout: ollama.DefaultProbeTimeout,
		DefaultModel: cfg.Model.Name,
	})

	fmt.Fprintf(env.Stdout, "%s config valid\n", statusTag(env, "ok"))

	if err := client.CheckRunning(ctx); err != nil {
		fmt.Fprintf(env.Stdout, "%s Ollama at %s: %v\n", statusTag(env, "fail"), client.BaseURL(), err)
		return err
	}
	fmt.Fprintf(env.Stdout, "%s Ollama at %s\n", statusTag(env, "ok"), client.BaseURL())

	if _, err := client.GetModel(ctx, cfg.Model.Name); err != nil {
		fmt.Fprintf(env.Stdout, "%s model %s: %v (try 'ollama pull %s')\n", statusTag(env, "fail"), cfg.Model.Name, err, cfg.Model.Name)
		return err
	}
	fmt.Fprintf(env.Stdout, "%s model %s\n", statusTag(env, "ok"), cfg.Model.Name)
	return nil
}

func statusTag(env *Env, status string) string {
	if !env.Color {
		switch status {
		case "ok":
			return "[OK]"
		case "fail":
			return "[FAIL]"
		}
	}
	return RenderStatus(status)
}
