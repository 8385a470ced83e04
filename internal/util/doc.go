// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the luna packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe whole-file replacement with fsync
//   - ExpandHome: Resolves a leading "~" against the user home directory
//
// String Utilities:
//   - TruncateWidth: Display-width aware truncation with ellipsis
//   - OneLine: Collapses newlines for single-line listings
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	display := util.TruncateWidth(util.OneLine(content), 60)
package util
