// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for luna.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/luna/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete luna configuration.
type Config struct {
	Assistant AssistantConfig `toml:"assistant"`
	Memory    MemoryConfig    `toml:"memory"`
	Model     ModelConfig     `toml:"model"`
	Log       LogConfig       `toml:"log"`
	Archive   ArchiveConfig   `toml:"archive"`
	UI        UIConfig        `toml:"ui"`
}

// AssistantConfig controls the persona written into the system preamble.
type AssistantConfig struct {
	// Name is how the assistant introduces itself and is labelled in output
	Name string `toml:"name"`
}

// MemoryConfig contains the bounded conversation memory settings.
type MemoryConfig struct {
	// MaxHistory is the number of turns kept (user and assistant turns each count)
	MaxHistory int `toml:"max_history"`
	// File is the JSON document holding the retained turns
	File string `toml:"memory_file"`
}

// ModelConfig contains the inference backend settings.
type ModelConfig struct {
	// Name is the Ollama model identifier
	Name string `toml:"name"`
	// OllamaURL is the base URL of the Ollama server
	OllamaURL string `toml:"ollama_url"`
	// TimeoutSecs bounds each chat call; 0 waits indefinitely
	TimeoutSecs int `toml:"timeout_secs"`
}

// LogConfig contains the log sink settings.
type LogConfig struct {
	// File is the append-only event log
	File string `toml:"file"`
	// Level is one of debug, info, warn, error
	Level string `toml:"level"`
}

// ArchiveConfig controls the optional unbounded transcript archive.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// UIConfig contains terminal output settings.
type UIConfig struct {
	// Markdown renders replies with glamour when stdout is a terminal
	Markdown bool `toml:"markdown"`
	// Color enables styled status output
	Color bool `toml:"color"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	// DefaultMaxHistory is the session's retained-turn count.
	DefaultMaxHistory = 50
	// DefaultModel is the model the assistant was tuned against.
	DefaultModel = "gemma2:9b"
	// DefaultOllamaURL uses an explicit IPv4 address to avoid localhost
	// resolving to ::1 when Ollama only listens on IPv4.
	DefaultOllamaURL = "http://127.0.0.1:11434"
	// DefaultAssistantName is the persona name.
	DefaultAssistantName = "Luna"
)

// Default returns a Config with sensible default values.
// File locations live under HomeDir().
func Default() *Config {
	home := HomeDir()
	return &Config{
		Assistant: AssistantConfig{
			Name: DefaultAssistantName,
		},
		Memory: MemoryConfig{
			MaxHistory: DefaultMaxHistory,
			File:       filepath.Join(home, "memory", "bot_memory.json"),
		},
		Model: ModelConfig{
			Name:        DefaultModel,
			OllamaURL:   DefaultOllamaURL,
			TimeoutSecs: 0,
		},
		Log: LogConfig{
			File:  filepath.Join(home, "logs", "chatbot.log"),
			Level: "info",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    filepath.Join(home, "archive.db"),
		},
		UI: UIConfig{
			Markdown: false,
			Color:    true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeDir returns the luna data directory: $LUNA_HOME, or ~/.luna.
// The result may still carry a leading "~"; Load expands it.
func HomeDir() string {
	if dir := os.Getenv("LUNA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join("~", ".luna")
}

// ConfigPathTOML returns the path to the default TOML config file.
func ConfigPathTOML() (string, error) {
	return util.ExpandHome(filepath.Join(HomeDir(), "config.toml"))
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load builds the effective configuration.
// An empty path means the default config file; a missing default file is not
// an error, but a missing explicit path is. Values from ./.env are exported
// before environment overrides are applied.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPathTOML()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config: %w", err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in the given .env file without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg and fills anything left empty.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults.
// MaxHistory is left alone so an explicit 0 still fails validation.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = defaults.Assistant.Name
	}
	if cfg.Memory.File == "" {
		cfg.Memory.File = defaults.Memory.File
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = defaults.Model.Name
	}
	if cfg.Model.OllamaURL == "" {
		cfg.Model.OllamaURL = defaults.Model.OllamaURL
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaults.Log.File
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = defaults.Archive.Path
	}
}

// ExpandPaths resolves "~" in every file location.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Memory.File, &c.Log.File, &c.Archive.Path} {
		expanded, err := util.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LUNA_MODEL: overrides model.name
//   - LUNA_OLLAMA_URL: overrides model.ollama_url
//   - LUNA_MAX_HISTORY: overrides memory.max_history
//   - LUNA_MEMORY_FILE: overrides memory.memory_file
//   - LUNA_LOG_FILE: overrides log.file
//   - LUNA_LOG_LEVEL: overrides log.level
//   - LUNA_ARCHIVE: "1" or "true" enables the transcript archive
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("LUNA_MODEL"); model != "" {
		c.Model.Name = model
	}
	if u := os.Getenv("LUNA_OLLAMA_URL"); u != "" {
		c.Model.OllamaURL = u
	}
	if v := os.Getenv("LUNA_MAX_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring LUNA_MAX_HISTORY=%q: not an integer\n", v)
		} else {
			c.Memory.MaxHistory = n
		}
	}
	if f := os.Getenv("LUNA_MEMORY_FILE"); f != "" {
		c.Memory.File = f
	}
	if f := os.Getenv("LUNA_LOG_FILE"); f != "" {
		c.Log.File = f
	}
	if lvl := os.Getenv("LUNA_LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
	if a := os.Getenv("LUNA_ARCHIVE"); a != "" {
		c.Archive.Enabled = a == "1" || strings.EqualFold(a, "true")
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns any errors as ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Memory.MaxHistory < 1 {
		errs = append(errs, ValidationError{
			Field:   "memory.max_history",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Memory.MaxHistory),
		})
	}
	if strings.TrimSpace(c.Memory.File) == "" {
		errs = append(errs, ValidationError{Field: "memory.memory_file", Message: "must not be empty"})
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, ValidationError{Field: "model.name", Message: "must not be empty"})
	}
	if u, err := url.Parse(c.Model.OllamaURL); err != nil {
		errs = append(errs, ValidationError{Field: "model.ollama_url", Message: fmt.Sprintf("invalid URL: %v", err)})
	} else if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "model.ollama_url",
			Message: fmt.Sprintf("must be an http(s) URL with a host, got '%s'", c.Model.OllamaURL),
		})
	}
	if c.Model.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "model.timeout_secs", Message: "cannot be negative"})
	}
	if strings.TrimSpace(c.Log.File) == "" {
		errs = append(errs, ValidationError{Field: "log.file", Message: "must not be empty"})
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Path) == "" {
		errs = append(errs, ValidationError{Field: "archive.path", Message: "required when archive is enabled"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the effective configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
