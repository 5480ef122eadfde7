// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by the form, the CLI and the
// identity providers.
//
// The TUI owns stdout and stderr while it runs, so log output is always sent
// to a file. The CLI commands use the same file so a single log shows what
// happened across both.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/authform/internal/config"
)

// Options controls logger construction.
type Options struct {
	// Level is a zap level name. Empty means info.
	Level string
	// Encoding is "json" or "console". Empty means json.
	Encoding string
	// Path is the log file. Empty discards all output.
	Path string
	// Verbose forces debug level.
	Verbose bool
}

// FromConfig derives Options from the [logging] section.
func FromConfig(cfg config.LoggingConfig, verbose bool) Options {
	return Options{
		Level:    cfg.Level,
		Encoding: cfg.Encoding,
		Path:     cfg.Path,
		Verbose:  verbose,
	}
}

// New builds a production zap logger writing to opts.Path.
func New(opts Options) (*zap.Logger, error) {
	if opts.Path == "" {
		return zap.NewNop(), nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logConf := zap.NewProductionConfig()
	logConf.Level.SetLevel(level)
	if opts.Encoding != "" {
		logConf.Encoding = opts.Encoding
	}
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.OutputPaths = []string{opts.Path}
	logConf.ErrorOutputPaths = []string{opts.Path}
	// Sampling drops repeated lines, which hides repeated sign-in failures.
	logConf.Sampling = nil

	logger, err := logConf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.With(zap.Int("pid", os.Getpid())), nil
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("no matching log level found for %q", name)
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
