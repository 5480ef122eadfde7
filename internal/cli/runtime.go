// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - State shared by the command handlers.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/config"
	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/identity/providers"
	"github.com/jeranaias/authform/internal/logging"
)

// Runtime holds what every command needs: parsed flags, the loaded
// configuration, the logger and, opened on first use, the identity provider.
type Runtime struct {
	Args   Args
	Config *config.Config
	Logger *zap.Logger

	Out io.Writer
	In  io.Reader

	// Prompter asks for credentials. Nil means a liner prompt on the
	// terminal, created on first use.
	Prompter Prompter

	// OpenProvider builds the provider. Defaults to providers.Open.
	OpenProvider func(*config.Config, *zap.Logger) (identity.Provider, error)

	provider     identity.Provider
	ownsPrompter bool
}

// NewRuntime loads the configuration and starts logging.
func NewRuntime(args Args) (*Runtime, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging, args.Verbose))
	if err != nil {
		return nil, fmt.Errorf("start logging: %w", err)
	}

	return &Runtime{
		Args:         args,
		Config:       cfg,
		Logger:       logger,
		Out:          os.Stdout,
		In:           os.Stdin,
		OpenProvider: providers.Open,
	}, nil
}

func loadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	if args.ConfigPath != "" {
		loaded, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		loaded, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		cfg = loaded
	}

	if args.Provider != "" {
		cfg.Provider.Kind = strings.ToLower(args.Provider)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, nil
}

// Provider returns the identity provider, opening it on first use.
func (rt *Runtime) Provider() (identity.Provider, error) {
	if rt.provider != nil {
		return rt.provider, nil
	}
	open := rt.OpenProvider
	if open == nil {
		open = providers.Open
	}
	p, err := open(rt.Config, rt.Logger)
	if err != nil {
		return nil, err
	}
	rt.provider = p
	return p, nil
}

func (rt *Runtime) prompter() (Prompter, error) {
	if rt.Prompter != nil {
		return rt.Prompter, nil
	}
	if err := RequiresTTY("read credentials"); err != nil {
		return nil, err
	}
	rt.Prompter = NewLinerPrompter()
	rt.ownsPrompter = true
	return rt.Prompter, nil
}

// context returns a context cancelled by Ctrl+C.
func (rt *Runtime) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// Close releases the provider and the prompter and flushes the log.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.ownsPrompter && rt.Prompter != nil {
		errs = append(errs, rt.Prompter.Close())
		rt.Prompter = nil
	}
	if rt.provider != nil {
		errs = append(errs, providers.Close(rt.provider))
		rt.provider = nil
	}
	if rt.Logger != nil {
		_ = rt.Logger.Sync()
	}
	return errors.Join(errs...)
}
