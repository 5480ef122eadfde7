// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_Modes(t *testing.T) {
	if theme := NewTheme("dark"); !theme.IsDark {
		t.Error("NewTheme(dark).IsDark = false, want true")
	}
	if theme := NewTheme("light"); theme.IsDark {
		t.Error("NewTheme(light).IsDark = true, want false")
	}
	if theme := NewTheme("auto"); theme == nil {
		t.Fatal("NewTheme(auto) returned nil")
	}
}

func TestTheme_StylesRender(t *testing.T) {
	theme := NewTheme("dark")
	for name, out := range map[string]string{
		"Card":          theme.Card.Render("x"),
		"FieldFocused":  theme.FieldFocused.Render("x"),
		"ButtonFocused": theme.ButtonFocused.Render("x"),
		"NoticeBox":     theme.NoticeBox.Render("x"),
		"KeyPanel":      theme.KeyPanel.Render("x"),
	} {
		if !strings.Contains(out, "x") {
			t.Errorf("%s.Render dropped content: %q", name, out)
		}
		if out == "x" {
			t.Errorf("%s style applied no decoration", name)
		}
	}
}

func TestRenderStatus_UsesIndicators(t *testing.T) {
	theme := NewTheme("dark")
	if got := theme.RenderStatus(true, "a@b.com"); !strings.Contains(got, StatusIndicators.SignedIn) {
		t.Errorf("RenderStatus(true) = %q, missing %q", got, StatusIndicators.SignedIn)
	}
	if got := theme.RenderStatus(false, "signed out"); !strings.Contains(got, StatusIndicators.SignedOut) {
		t.Errorf("RenderStatus(false) = %q, missing %q", got, StatusIndicators.SignedOut)
	}
	if got := theme.RenderPending("signing in"); !strings.Contains(got, StatusIndicators.Pending) {
		t.Errorf("RenderPending = %q, missing %q", got, StatusIndicators.Pending)
	}
}
