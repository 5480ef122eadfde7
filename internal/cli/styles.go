// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Styles for command output, drawn from the form palette.

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/authform/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

var (
	// TitleStyle heads a command's output.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)

	// LabelStyle pads labels so values line up.
	LabelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(12)

	ValueStyle   = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	SuccessStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Emerald)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.ErrorHighContrast)
	DimStyle     = lipgloss.NewStyle().Foreground(styles.TextMuted)
)

// RenderLabel renders a fixed-width label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
