// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the append-only event log used by luna.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Event names written in the "event" field of every log line.
const (
	EventSessionStart    = "session_start"
	EventSessionEnd      = "session_end"
	EventUserMessage     = "user_message"
	EventAssistantReply  = "assistant_reply"
	EventInferenceError  = "inference_error"
	EventMemoryLoadError = "memory_load_error"
	EventMemorySaveError = "memory_save_error"
	EventMemoryRecord    = "memory_record_dropped"
	EventArchiveError    = "archive_error"
	EventInputError      = "input_error"
)

// Sink owns the log file behind a zerolog.Logger.
type Sink struct {
	Logger zerolog.Logger
	file   *os.File
}

// Open opens (creating if needed) the log file in append mode and returns a
// Sink writing JSON lines at the given level.
func Open(path, level string) (*Sink, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Sink{
		Logger: New(f, lvl),
		file:   f,
	}, nil
}

// Close flushes and closes the log file.
func (s *Sink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// New returns a JSON-lines logger on w with RFC3339 timestamps.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Tee returns a logger writing JSON lines to the sink and console-formatted
// lines to diag. Only events at warn or above reach diag.
func (s *Sink) Tee(diag io.Writer, noColor bool) zerolog.Logger {
	console := zerolog.ConsoleWriter{
		Out:        diag,
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
	}
	filtered := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: console},
		Level:  zerolog.WarnLevel,
	}
	multi := zerolog.MultiLevelWriter(s.file, filtered)
	return zerolog.New(multi).Level(s.Logger.GetLevel()).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
