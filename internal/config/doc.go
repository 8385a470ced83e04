// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for luna.
//
// Configuration is TOML with sensible defaults, .env support and
// environment variable overrides.
//
// # Key Types
//
//   - Config: Complete configuration
//   - MemoryConfig: Bounded conversation memory (max_history, memory_file)
//   - ModelConfig: Ollama endpoint and model identifier
//   - LogConfig: Append-only log sink location and level
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (LUNA_*), including values from ./.env
//   - ~/.luna/config.toml (or the file passed with --config)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, _ := memory.New(cfg.Memory.MaxHistory, cfg.Memory.File)
package config
