// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/luna/internal/chat"
)

// =============================================================================
// INTERACTIVE INPUT
// =============================================================================

// ChatCLI provides line editing and input history for an interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a liner-backed reader. History is kept in historyFile
// when it is non-empty.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads one line with line editing. Ctrl+C maps to
// chat.ErrInterrupted and Ctrl+D to io.EOF.
func (c *ChatCLI) ReadLine(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", chat.ErrInterrupted
		}
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() error {
	if c.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = c.line.WriteHistory(f)
	return err
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() error {
	histErr := c.SaveHistory()
	if err := c.line.Close(); err != nil {
		return err
	}
	return histErr
}

// =============================================================================
// PIPED INPUT
// =============================================================================

// ScannerReader reads lines from a non-interactive source such as a pipe.
type ScannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewScannerReader reads lines from r and echoes prompts to out.
func NewScannerReader(r io.Reader, out io.Writer) *ScannerReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ScannerReader{scanner: s, out: out}
}

// ReadLine returns the next line without its terminator.
func (s *ScannerReader) ReadLine(prompt string) (string, error) {
	if s.out != nil {
		fmt.Fprint(s.out, prompt)
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := strings.TrimSuffix(s.scanner.Text(), "\r")
	if s.out != nil {
		fmt.Fprintln(s.out)
	}
	return line, nil
}
