// authform - Sign up, sign in and sign out from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/cli"
	"github.com/jeranaias/authform/internal/ui/authform"
	"github.com/jeranaias/authform/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// Commands that need neither configuration nor a provider.
	switch cmd {
	case cli.CmdHelp:
		cli.HandleHelp()
		return
	case cli.CmdVersion:
		exitOnError(cli.HandleVersion(args, os.Stdout))
		return
	case cli.CmdUnknown:
		exitOnError(cli.ErrUnknownCommand(args.Raw[0]))
		return
	}

	rt, err := cli.NewRuntime(args)
	if err != nil {
		exitOnError(err)
		return
	}

	err = run(cmd, rt)
	if closeErr := rt.Close(); err == nil {
		err = closeErr
	}
	exitOnError(err)
}

func run(cmd cli.Command, rt *cli.Runtime) error {
	switch cmd {
	case cli.CmdStatus:
		return cli.HandleStatus(rt)
	case cli.CmdSignUp:
		return cli.HandleSignUp(rt)
	case cli.CmdSignIn:
		return cli.HandleSignIn(rt)
	case cli.CmdSignOut:
		return cli.HandleSignOut(rt)
	case cli.CmdConfig:
		return cli.HandleConfig(rt)
	default:
		return runTUI(rt)
	}
}

// runTUI starts the form.
func runTUI(rt *cli.Runtime) error {
	if err := cli.RequiresTTY("run the form"); err != nil {
		return err
	}

	p, err := rt.Provider()
	if err != nil {
		return err
	}
	rt.Logger.Info("starting form", zap.String("provider", rt.Config.Provider.Kind))

	form := authform.New(p,
		authform.WithLogger(rt.Logger.Named("form")),
		authform.WithTheme(styles.NewTheme(rt.Config.UI.Theme)),
		authform.WithFullHelp(rt.Config.UI.ShowKeyboardHelp),
	)
	defer form.Dispose()

	program := tea.NewProgram(form, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run form: %w", err)
	}
	return nil
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", cli.ErrorStyle.Render("Error:"), err)
	if cli.IsUsageError(err) {
		fmt.Fprintln(os.Stderr, "\nRun 'authform help' for usage.")
	}
	os.Exit(cli.GetExitCode(err))
}
