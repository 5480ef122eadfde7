// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Interactive credential prompts.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted")

// Prompter reads answers from the user.
type Prompter interface {
	// Prompt reads a line with echo.
	Prompt(label string) (string, error)
	// PasswordPrompt reads a line without echo.
	PasswordPrompt(label string) (string, error)
	Close() error
}

// linerPrompter prompts on the terminal with line editing.
type linerPrompter struct {
	line *liner.State
}

// NewLinerPrompter takes over the terminal until Close.
func NewLinerPrompter() Prompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &linerPrompter{line: line}
}

func (p *linerPrompter) Prompt(label string) (string, error) {
	s, err := p.line.Prompt(label)
	return strings.TrimSpace(s), promptErr(err)
}

func (p *linerPrompter) PasswordPrompt(label string) (string, error) {
	s, err := p.line.PasswordPrompt(label)
	return s, promptErr(err)
}

func (p *linerPrompter) Close() error {
	return p.line.Close()
}

func promptErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
		return ErrAborted
	default:
		return fmt.Errorf("read input: %w", err)
	}
}

// readSecretLine reads the first line of r, without its line ending.
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
