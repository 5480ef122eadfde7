// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package oidc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/logging"
	"github.com/jeranaias/authform/internal/util"
)

// ErrNoIDToken is returned when the token response carries no id_token.
var ErrNoIDToken = errors.New("no id_token field in oauth2 token")

// registrationMessage is shown for CreateUser; accounts are provisioned in
// the identity provider's own console.
const registrationMessage = "Account registration is not available for this identity provider."

// Config holds the client registration.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	SessionFile  string
}

// verifiedClaims is what the form needs from a verified ID token.
type verifiedClaims struct {
	Subject string
	Email   string
	Expiry  time.Time
}

type exchangeFunc func(ctx context.Context, email, password string) (*oauth2.Token, error)
type verifyFunc func(ctx context.Context, rawIDToken string) (verifiedClaims, error)

// Provider authenticates against an OpenID Connect issuer with the
// resource-owner password grant and verifies the returned ID token.
type Provider struct {
	cfg    Config
	store  *identity.FileStore
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	exchange exchangeFunc
	verify   verifyFunc
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logging.OrNop(logger)
	}
}

// New returns a provider for cfg. Discovery is deferred to the first sign-in
// so an unreachable issuer does not stop the form from opening.
func New(cfg Config, opts ...Option) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{gooidc.ScopeOpenID, "email"}
	}
	p := &Provider{
		cfg:    cfg,
		store:  identity.NewFileStore(cfg.SessionFile),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements identity.Named.
func (p *Provider) Name() string { return "oidc" }

// WatchPath implements identity.Watchable.
func (p *Provider) WatchPath() string { return p.store.Path() }

// discover fetches the issuer's metadata and builds the token exchange and
// the ID token verifier.
func (p *Provider) discover(ctx context.Context) (exchangeFunc, verifyFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exchange != nil && p.verify != nil {
		return p.exchange, p.verify, nil
	}

	provider, err := gooidc.NewProvider(ctx, p.cfg.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("discover %s: %w", p.cfg.Issuer, err)
	}

	conf := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		Scopes:       p.cfg.Scopes,
	}
	verifier := provider.Verifier(&gooidc.Config{ClientID: p.cfg.ClientID, Now: p.now})

	p.exchange = func(ctx context.Context, email, password string) (*oauth2.Token, error) {
		return conf.PasswordCredentialsToken(ctx, email, password)
	}
	p.verify = func(ctx context.Context, raw string) (verifiedClaims, error) {
		idToken, err := verifier.Verify(ctx, raw)
		if err != nil {
			return verifiedClaims{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return verifiedClaims{}, err
		}
		return verifiedClaims{Subject: idToken.Subject, Email: claims.Email, Expiry: idToken.Expiry}, nil
	}

	p.logger.Debug("oidc discovery complete", zap.String("issuer", p.cfg.Issuer))
	return p.exchange, p.verify, nil
}

// CurrentSession returns the persisted session.
func (p *Provider) CurrentSession() identity.Session {
	rec, ok, err := p.store.Load()
	if err != nil {
		p.logger.Warn("ignoring unreadable session file", zap.Error(err))
		return identity.SignedOut{}
	}
	if !ok {
		return identity.SignedOut{}
	}
	return rec.Session()
}

// CreateUser is not supported by the password grant.
func (p *Provider) CreateUser(ctx context.Context, email, password string) (identity.SignedIn, error) {
	return identity.SignedIn{}, identity.NewError(identity.CodeNotAllowed, registrationMessage, nil)
}

// SignIn exchanges the credentials for tokens and verifies the ID token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.SignedIn, error) {
	exchange, verify, err := p.discover(ctx)
	if err != nil {
		p.logger.Error("oidc discovery failed", zap.Error(err))
		return identity.SignedIn{}, identity.Errorf(identity.CodeNetwork, err)
	}

	token, err := exchange(ctx, email, password)
	if err != nil {
		p.logger.Info("token exchange rejected", zap.String("email", util.MaskEmail(email)), zap.Error(err))
		return identity.SignedIn{}, exchangeError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return identity.SignedIn{}, identity.NewError("INTERNAL", identity.GenericMessage, ErrNoIDToken)
	}
	claims, err := verify(ctx, rawIDToken)
	if err != nil {
		p.logger.Warn("id token failed verification", zap.Error(err))
		return identity.SignedIn{}, identity.Errorf(identity.CodeInvalidCredInfo, err)
	}
	if claims.Email == "" {
		claims.Email = email
	}

	rec := identity.Record{
		Provider:     p.Name(),
		Email:        claims.Email,
		UserID:       claims.Subject,
		IDToken:      rawIDToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    claims.Expiry,
		SignedInAt:   p.now(),
	}
	if err := p.store.Save(rec); err != nil {
		return identity.SignedIn{}, identity.NewError("INTERNAL", identity.GenericMessage, err)
	}

	p.logger.Info("authenticated", zap.String("sub", rec.UserID))
	return rec.Session(), nil
}

// SignOut forgets the local session.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.store.Clear(); err != nil {
		return identity.NewError("INTERNAL", identity.GenericMessage, err)
	}
	p.logger.Info("signed out")
	return nil
}

// exchangeError maps an OAuth2 token endpoint failure to a ProviderError.
func exchangeError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return identity.Errorf(identity.CodeNetwork, err)
	}
	switch {
	case re.ErrorDescription != "":
		return identity.NewError(re.ErrorCode, re.ErrorDescription, err)
	case re.ErrorCode == "invalid_grant":
		return identity.NewError(re.ErrorCode, identity.MessageFor(identity.CodeInvalidPassword), err)
	case re.ErrorCode != "":
		return identity.NewError(re.ErrorCode, re.ErrorCode, err)
	}
	return identity.NewError("INTERNAL", identity.GenericMessage, err)
}
