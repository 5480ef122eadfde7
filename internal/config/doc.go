// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for authform.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: Which identity backend the form talks to
//   - LocalConfig, FirebaseConfig, OIDCConfig: Per-backend settings
//   - LoggingConfig: zap level, encoding and log file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AUTHFORM_*)
//   - ~/.authform/config.toml
//   - ~/.authform/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
//	}
//	provider, err := providers.Open(cfg, logger)
package config
