// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/luna/internal/config"
	"github.com/jeranaias/luna/internal/ollama"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the inference backend could not be reached
	ExitNetworkError = 5
	// ExitInputClosed indicates stdin closed before the conversation ended
	ExitInputClosed = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "memory", "archive")
	Action  string // Action being performed (e.g., "show", "clear")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments. main prints usage after it.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usageErr  *UsageError
		configErr *ConfigError
		validErrs config.ValidateErrors
	)
	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &validErrs):
		return ExitConfigError
	case errors.Is(err, io.EOF):
		return ExitInputClosed
	case ollama.IsNotRunning(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
