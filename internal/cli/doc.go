// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive
// commands of authform.
//
// # Key Types
//
//   - Command: the command to run
//   - Args: parsed global and command flags
//   - Runtime: configuration, logger and the lazily opened identity provider
//   - JSONResponse: the envelope printed by --json
//
// # Usage
//
//	cmd, args := cli.Parse()
//	rt, err := cli.NewRuntime(args)
//	if err != nil {
//	    ...
//	}
//	defer rt.Close()
//	switch cmd {
//	case cli.CmdStatus:
//	    err = cli.HandleStatus(rt)
//	// ... other commands
//	}
//
// Handlers return errors; GetExitCode maps them to exit codes. Identity
// provider rejections exit with ExitAuthError and unreachable providers
// with ExitNetworkError.
package cli
