// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// account_cmd.go - status, signup, signin and signout.

package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// HandleStatus prints who is signed in.
func HandleStatus(rt *Runtime) error {
	return OutputJSON(rt.Out, rt.Args.JSON, "status", func() (interface{}, error) {
		p, err := rt.Provider()
		if err != nil {
			return nil, err
		}
		data := sessionData(p, p.CurrentSession())
		if !rt.Args.JSON {
			printSession(rt, data)
		}
		return data, nil
	})
}

func sessionData(p identity.Provider, s identity.Session) SessionData {
	data := SessionData{Provider: identity.NameOf(p)}
	if in, ok := s.(identity.SignedIn); ok {
		data.SignedIn = true
		data.Email = in.Email
		data.UserID = in.UserID
		if !in.ExpiresAt.IsZero() {
			exp := in.ExpiresAt.UTC()
			data.ExpiresAt = &exp
		}
	}
	return data
}

func printSession(rt *Runtime, data SessionData) {
	fmt.Fprintln(rt.Out, TitleStyle.Render("authform status"))
	fmt.Fprintf(rt.Out, "%s%s\n", RenderLabel("Provider"), ValueStyle.Render(data.Provider))
	if !data.SignedIn {
		fmt.Fprintf(rt.Out, "%s%s\n", RenderLabel("Session"), DimStyle.Render("signed out"))
		return
	}
	fmt.Fprintf(rt.Out, "%s%s\n", RenderLabel("Session"), SuccessStyle.Render("signed in"))
	fmt.Fprintf(rt.Out, "%s%s\n", RenderLabel("Email"), ValueStyle.Render(data.Email))
	fmt.Fprintf(rt.Out, "%s%s\n", RenderLabel("User ID"), DimStyle.Render(data.UserID))
	if data.ExpiresAt != nil {
		left := time.Until(*data.ExpiresAt).Round(time.Minute)
		fmt.Fprintf(rt.Out, "%s%s %s\n", RenderLabel("Expires"),
			ValueStyle.Render(data.ExpiresAt.Local().Format(time.RFC1123)),
			DimStyle.Render(fmt.Sprintf("(in %s)", left)))
	}
}

// =============================================================================
// SIGN UP / SIGN IN
// =============================================================================

// HandleSignUp creates an account and signs it in.
func HandleSignUp(rt *Runtime) error {
	return authenticate(rt, "signup", func(ctx context.Context, p identity.Provider, email, password string) (identity.SignedIn, error) {
		return p.CreateUser(ctx, email, password)
	})
}

// HandleSignIn signs in.
func HandleSignIn(rt *Runtime) error {
	return authenticate(rt, "signin", func(ctx context.Context, p identity.Provider, email, password string) (identity.SignedIn, error) {
		return p.SignIn(ctx, email, password)
	})
}

type authFunc func(ctx context.Context, p identity.Provider, email, password string) (identity.SignedIn, error)

func authenticate(rt *Runtime, command string, call authFunc) error {
	return OutputJSON(rt.Out, rt.Args.JSON, command, func() (interface{}, error) {
		p, err := rt.Provider()
		if err != nil {
			return nil, err
		}
		email, password, err := rt.credentials()
		if err != nil {
			return nil, err
		}

		ctx, cancel := rt.context()
		defer cancel()

		session, err := call(ctx, p, email, password)
		if err != nil {
			rt.Logger.Info(command+" failed", zap.String("email", util.MaskEmail(email)), zap.Error(err))
			return nil, err
		}
		rt.Logger.Info(command+" succeeded", zap.String("email", util.MaskEmail(session.Email)))

		data := sessionData(p, session)
		if !rt.Args.JSON {
			fmt.Fprintf(rt.Out, "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), session.Email)
		}
		return data, nil
	})
}

// credentials returns the email and password from flags, stdin or prompts.
// Neither may be empty.
func (rt *Runtime) credentials() (string, string, error) {
	email := rt.Args.Email
	if email == "" {
		pr, err := rt.prompter()
		if err != nil {
			return "", "", err
		}
		if email, err = pr.Prompt("Email: "); err != nil {
			return "", "", err
		}
	}
	if email == "" {
		return "", "", ErrMissingArgument("email", "authform signin --email you@example.com")
	}

	var password string
	if rt.Args.PasswordStdin {
		pw, err := readSecretLine(rt.In)
		if err != nil {
			return "", "", err
		}
		password = pw
	} else {
		pr, err := rt.prompter()
		if err != nil {
			return "", "", err
		}
		if password, err = pr.PasswordPrompt("Password: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		return "", "", ErrMissingArgument("password", "echo \"$PASSWORD\" | authform signin --email you@example.com --password-stdin")
	}
	return email, password, nil
}

// =============================================================================
// SIGN OUT
// =============================================================================

// HandleSignOut signs out. Signing out with nobody signed in is not an error.
func HandleSignOut(rt *Runtime) error {
	return OutputJSON(rt.Out, rt.Args.JSON, "signout", func() (interface{}, error) {
		p, err := rt.Provider()
		if err != nil {
			return nil, err
		}
		before := p.CurrentSession()

		ctx, cancel := rt.context()
		defer cancel()
		if err := p.SignOut(ctx); err != nil {
			rt.Logger.Warn("sign out failed", zap.Error(err))
			return nil, err
		}
		rt.Logger.Info("signed out")

		if !rt.Args.JSON {
			if email, ok := identity.EmailOf(before); ok {
				fmt.Fprintf(rt.Out, "%s Signed out %s\n", SuccessStyle.Render("[OK]"), email)
			} else {
				fmt.Fprintln(rt.Out, DimStyle.Render("Not signed in"))
			}
		}
		return sessionData(p, identity.SignedOut{}), nil
	})
}
