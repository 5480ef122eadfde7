// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and top-level handlers for authform.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdStatus
	CmdSignUp
	CmdSignIn
	CmdSignOut
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdStatus:
		return "status"
	case CmdSignUp:
		return "signup"
	case CmdSignIn:
		return "signin"
	case CmdSignOut:
		return "signout"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose    bool
	JSON       bool
	ConfigPath string // --config: load this file instead of ~/.authform/config.toml
	Provider   string // --provider: override provider.kind

	// Command-specific
	Email         string
	PasswordStdin bool // read the password from the first line of stdin
	Subcommand    string
	ConfigKey     string
	Force         bool

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `authform - sign up, sign in and sign out from the terminal

Usage:
  authform                       Start the form (default)
  authform tui                   Start the form
  authform status                Show who is signed in
  authform signup [--email E]    Create an account and sign in
  authform signin [--email E]    Sign in
  authform signout               Sign out
  authform config [subcommand]   Configuration
  authform version               Show version
  authform help                  Show this help

Config Commands:
  authform config show           Print the configuration (secrets redacted)
  authform config path           Print the config file path
  authform config get KEY        Print one value (dot notation, e.g. provider.kind)
  authform config keys           List every key
  authform config init [--force] Write a default config.toml

Sign Up / Sign In:
  --email E                      Email address (prompted when omitted)
  --password-stdin               Read the password from stdin instead of prompting

Global Flags:
  --config PATH                  Use a specific config file
  --provider KIND                Identity provider: local, firebase, oidc
  -v, --verbose                  Debug logging
  --json                         JSON output

Environment:
  AUTHFORM_HOME                  Config directory (default ~/.authform)
  AUTHFORM_PROVIDER              Same as --provider

Form Keys:
  tab / shift+tab                Move between fields and buttons
  enter                          Next field, end editing, or press a button
  ctrl+u                         Sign Up
  ctrl+s                         Sign In / Sign Out
  esc                            Hide the key panel
  ctrl+c                         Quit
`

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "authform %s\n", Version)
	fmt.Fprintf(w, "  Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:     %s\n", runtime.Version())
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the arguments after the program name.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No command means the form.
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui", "form":
		return CmdTUI, parsedArgs

	case "status", "s", "whoami":
		return CmdStatus, parsedArgs

	case "signup", "sign-up", "register":
		parseCredentialArgs(&parsedArgs, remaining)
		return CmdSignUp, parsedArgs

	case "signin", "sign-in", "login":
		parseCredentialArgs(&parsedArgs, remaining)
		return CmdSignIn, parsedArgs

	case "signout", "sign-out", "logout":
		return CmdSignOut, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--config", "--provider":
			if i+1 < len(args) {
				i++
				if arg == "--config" {
					parsedArgs.ConfigPath = args[i]
				} else {
					parsedArgs.Provider = args[i]
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--provider="):
				parsedArgs.Provider = strings.TrimPrefix(arg, "--provider=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

func parseCredentialArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Email = strings.TrimSpace(p.FlagOrDefault("email", p.Flag("e")))
	if args.Email == "" {
		args.Email = strings.TrimSpace(p.Subcommand())
	}
	args.PasswordStdin = p.BoolFlag("password-stdin")
}

func parseConfigArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = p.Subcommand()
	args.ConfigKey = p.Positional(1)
	args.Force = p.BoolFlag("force")
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args, w io.Writer) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	PrintVersion(w)
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
