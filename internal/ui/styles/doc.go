// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the authform TUI.
//
// # Key Types
//
//   - Theme: every lipgloss style the form, notice and key panel use
//   - StatusIndicatorSet: ASCII shape indicators for session states
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	title := theme.Title.Render("Sign In")
package styles
