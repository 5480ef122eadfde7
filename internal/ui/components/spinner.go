// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/authform/internal/ui/styles"
)

// =============================================================================
// SPINNER
// =============================================================================

// Spinner animates while a provider request is in flight. It only ticks
// between Start and Stop; a tick that arrives after Stop ends the chain.
type Spinner struct {
	spinner   spinner.Model
	theme     *styles.Theme
	message   string
	startTime time.Time
	active    bool

	// now is replaced in tests.
	now func() time.Time
}

// NewSpinner creates a stopped spinner. The frames are plain ASCII so the
// indicator survives terminals without Unicode fonts.
func NewSpinner(theme *styles.Theme, message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.StatusPending

	return Spinner{
		spinner: s,
		theme:   theme,
		message: message,
		now:     time.Now,
	}
}

// Start begins animating and returns the first tick. Starting a running
// spinner returns nil so only one tick chain exists.
func (s Spinner) Start() (Spinner, tea.Cmd) {
	if s.active {
		return s, nil
	}
	s.active = true
	s.startTime = s.now()
	return s, s.spinner.Tick
}

// Stop ends the animation.
func (s Spinner) Stop() Spinner {
	s.active = false
	return s
}

// IsActive reports whether the spinner is running.
func (s Spinner) IsActive() bool {
	return s.active
}

// Update advances the frame on the spinner's own ticks.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(tick)
	return s, cmd
}

// View renders the frame and message, with the elapsed time once it
// reaches a second. A stopped spinner renders nothing.
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	text := s.message
	if elapsed := s.now().Sub(s.startTime); elapsed >= time.Second {
		text = fmt.Sprintf("%s (%ds)", text, int(elapsed.Seconds()))
	}
	return s.spinner.View() + " " + s.theme.StatusPending.Render(text)
}
