// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package providers opens the identity provider selected in the config.
package providers

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/config"
	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/identity/firebase"
	"github.com/jeranaias/authform/internal/identity/local"
	"github.com/jeranaias/authform/internal/identity/oidc"
)

// Factory builds a provider from the full config.
type Factory func(cfg *config.Config, logger *zap.Logger) (identity.Provider, error)

// Factories maps provider.kind to its constructor.
var Factories = map[string]Factory{
	config.ProviderLocal:    openLocal,
	config.ProviderFirebase: openFirebase,
	config.ProviderOIDC:     openOIDC,
}

// Kinds returns the registered provider kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(Factories))
	for k := range Factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Open builds the provider named by cfg.Provider.Kind. Callers should close
// it with Close when done.
func Open(cfg *config.Config, logger *zap.Logger) (identity.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, ok := Factories[cfg.Provider.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Kind)
	}
	p, err := f(cfg, logger.Named(cfg.Provider.Kind))
	if err != nil {
		return nil, fmt.Errorf("open %s provider: %w", cfg.Provider.Kind, err)
	}
	return p, nil
}

// Close releases resources held by p, if any.
func Close(p identity.Provider) error {
	if c, ok := p.(identity.Closer); ok {
		return c.Close()
	}
	return nil
}

func openLocal(cfg *config.Config, logger *zap.Logger) (identity.Provider, error) {
	c := cfg.Local
	return local.Open(c.DatabasePath,
		local.WithLogger(logger),
		local.WithTokenSecret(c.TokenSecret),
		local.WithSessionTTL(time.Duration(c.SessionTTLHours)*time.Hour),
		local.WithBcryptCost(c.BcryptCost),
		local.WithMinPasswordLength(c.MinPasswordLength),
		local.WithAttemptsPerMinute(c.AttemptsPerMinute),
	)
}

func openFirebase(cfg *config.Config, logger *zap.Logger) (identity.Provider, error) {
	c := cfg.Firebase
	if c.APIKey == "" {
		return nil, fmt.Errorf("firebase.api_key is not set")
	}
	return firebase.New(c.APIKey, c.SessionFile,
		firebase.WithLogger(logger),
		firebase.WithEndpoint(c.Endpoint),
		firebase.WithMaxRetries(c.MaxRetries),
		firebase.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
	), nil
}

func openOIDC(cfg *config.Config, logger *zap.Logger) (identity.Provider, error) {
	c := cfg.OIDC
	return oidc.New(oidc.Config{
		Issuer:       c.Issuer,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		SessionFile:  c.SessionFile,
	}, oidc.WithLogger(logger)), nil
}
