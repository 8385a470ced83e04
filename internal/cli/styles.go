// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/luna/internal/ui/styles"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and the banner
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// PromptStyle is used for the user prompt
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// AssistantStyle is used for the assistant name before a reply
	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(16)

	// ValueStyle is used for regular values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for hints and timestamps
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)
)

// RoleStyle returns the style for a conversation role label.
func RoleStyle(role string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(styles.RoleColor(role))
}

// RenderSeparator renders a horizontal rule of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 60
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// RenderStatus renders a status indicator.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok":
		return SuccessStyle.Render("[OK]")
	case "fail", "error":
		return ErrorStyle.Render("[FAIL]")
	case "warn", "warning":
		return WarningStyle.Render("[WARN]")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}
