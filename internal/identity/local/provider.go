// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/logging"
	"github.com/jeranaias/authform/internal/util"
)

const settingTokenSecret = "token_secret"

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Provider.
type Option func(*Provider)

// WithTokenSecret sets the HMAC key for session tokens. Without it a key is
// generated on first use and kept in the database.
func WithTokenSecret(secret string) Option {
	return func(p *Provider) {
		if secret != "" {
			p.secret = []byte(secret)
		}
	}
}

// WithSessionTTL sets how long a sign-in stays valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.sessionTTL = ttl
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(p *Provider) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.bcryptCost = cost
		}
	}
}

// WithMinPasswordLength sets the shortest password CreateUser accepts.
func WithMinPasswordLength(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.minPassword = n
		}
	}
}

// WithAttemptsPerMinute throttles sign-in attempts per email. Zero disables
// throttling.
func WithAttemptsPerMinute(n int) Option {
	return func(p *Provider) {
		p.attemptsPerMinute = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logging.OrNop(logger)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// =============================================================================
// PROVIDER
// =============================================================================

// Provider is an identity backend kept entirely in a local sqlite database.
// It behaves like a hosted email/password service: CreateUser signs the new
// user in, there is at most one current session, and sessions are HS256
// tokens that expire.
type Provider struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time

	secret            []byte
	sessionTTL        time.Duration
	bcryptCost        int
	minPassword       int
	attemptsPerMinute int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Open opens the database at path and returns a ready provider.
func Open(path string, opts ...Option) (*Provider, error) {
	p := &Provider{
		path:              path,
		logger:            zap.NewNop(),
		now:               time.Now,
		sessionTTL:        14 * 24 * time.Hour,
		bcryptCost:        bcrypt.DefaultCost,
		minPassword:       6,
		attemptsPerMinute: 5,
		limiters:          make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(p)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	p.db = db

	if p.secret == nil {
		secret, err := p.loadOrCreateSecret(context.Background())
		if err != nil {
			db.Close()
			return nil, err
		}
		p.secret = secret
	}

	p.logger.Debug("local identity store opened", zap.String("path", path))
	return p, nil
}

func (p *Provider) loadOrCreateSecret(ctx context.Context) ([]byte, error) {
	stored, err := getSetting(ctx, p.db, settingTokenSecret)
	if err == nil {
		return hex.DecodeString(stored)
	}
	if !errors.Is(err, ErrNoRows) {
		return nil, fmt.Errorf("read token secret: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	if err := putSetting(ctx, p.db, settingTokenSecret, hex.EncodeToString(buf)); err != nil {
		return nil, fmt.Errorf("store token secret: %w", err)
	}
	return buf, nil
}

// Name implements identity.Named.
func (p *Provider) Name() string { return "local" }

// WatchPath implements identity.Watchable. An in-memory database has no
// file to watch.
func (p *Provider) WatchPath() string {
	if p.path == memoryPath {
		return ""
	}
	return p.path
}

// Close closes the database.
func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) signer() tokenSigner {
	return tokenSigner{secret: p.secret, now: p.now}
}

// CurrentSession returns the active session, or SignedOut when there is none
// or its token no longer verifies.
func (p *Provider) CurrentSession() identity.Session {
	row, err := currentSession(context.Background(), p.db)
	if err != nil {
		if !errors.Is(err, ErrNoRows) {
			p.logger.Warn("read current session", zap.Error(err))
		}
		return identity.SignedOut{}
	}
	if row.Revoked {
		return identity.SignedOut{}
	}

	claims, err := p.signer().verify(row.Token)
	if err != nil {
		p.logger.Debug("current session token rejected", zap.String("session", row.ID), zap.Error(err))
		return identity.SignedOut{}
	}
	return identity.SignedIn{
		Email:     claims.Email,
		UserID:    claims.Subject,
		ExpiresAt: time.Unix(claims.ExpiresAt.Unix(), 0),
	}
}

// CreateUser registers a new account and signs it in.
func (p *Provider) CreateUser(ctx context.Context, email, password string) (identity.SignedIn, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return identity.SignedIn{}, err
	}
	if utf8.RuneCountInString(password) < p.minPassword {
		return identity.SignedIn{}, identity.WeakPassword(p.minPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return identity.SignedIn{}, identity.Errorf("INTERNAL", fmt.Errorf("hash password: %w", err))
	}

	now := p.now()
	user := userRow{ID: uuid.NewString(), Email: email, PasswordHash: hash}

	var session identity.SignedIn
	err = p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := userByEmail(ctx, tx, email); err == nil {
			return identity.Errorf(identity.CodeEmailExists, nil)
		} else if !errors.Is(err, ErrNoRows) {
			return err
		}
		if err := insertUser(ctx, tx, user, now); err != nil {
			return err
		}
		started, err := p.startSession(ctx, tx, user, now)
		session = started
		return err
	})
	if err != nil {
		return identity.SignedIn{}, p.wrap("create user", err)
	}

	p.logger.Info("user created", zap.String("user_id", user.ID), zap.String("email", util.MaskEmail(email)))
	return session, nil
}

// SignIn checks the password and makes a new session current.
func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.SignedIn, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return identity.SignedIn{}, err
	}
	if !p.allowAttempt(email) {
		p.logger.Warn("sign-in throttled", zap.String("email", util.MaskEmail(email)))
		return identity.SignedIn{}, identity.Errorf(identity.CodeTooManyAttempts, nil)
	}

	user, err := userByEmail(ctx, p.db, email)
	if errors.Is(err, ErrNoRows) {
		return identity.SignedIn{}, identity.Errorf(identity.CodeEmailNotFound, nil)
	}
	if err != nil {
		return identity.SignedIn{}, p.wrap("sign in", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return identity.SignedIn{}, identity.Errorf(identity.CodeInvalidPassword, err)
	}
	p.resetAttempts(email)

	now := p.now()
	var session identity.SignedIn
	err = p.inTx(ctx, func(tx *sql.Tx) error {
		if err := touchSignIn(ctx, tx, user.ID, now); err != nil {
			return err
		}
		// Replacing the current session ends the previous one.
		if prev, err := currentSession(ctx, tx); err == nil {
			if err := revokeSession(ctx, tx, prev.ID, now); err != nil {
				return err
			}
		}
		started, err := p.startSession(ctx, tx, user, now)
		session = started
		return err
	})
	if err != nil {
		return identity.SignedIn{}, p.wrap("sign in", err)
	}

	p.logger.Info("user signed in", zap.String("user_id", user.ID))
	return session, nil
}

// SignOut revokes the current session. Signing out with nobody signed in
// succeeds.
func (p *Provider) SignOut(ctx context.Context) error {
	now := p.now()
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		row, err := currentSession(ctx, tx)
		if errors.Is(err, ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := revokeSession(ctx, tx, row.ID, now); err != nil {
			return err
		}
		return clearCurrentSession(ctx, tx)
	})
	if err != nil {
		return p.wrap("sign out", err)
	}
	p.logger.Info("user signed out")
	return nil
}

func (p *Provider) startSession(ctx context.Context, tx *sql.Tx, user userRow, now time.Time) (identity.SignedIn, error) {
	row := sessionRow{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(p.sessionTTL),
	}
	token, err := p.signer().issue(row.ID, user.ID, user.Email, now, row.ExpiresAt)
	if err != nil {
		return identity.SignedIn{}, err
	}
	row.Token = token

	if err := insertSession(ctx, tx, row, now); err != nil {
		return identity.SignedIn{}, err
	}
	if err := setCurrentSession(ctx, tx, row.ID); err != nil {
		return identity.SignedIn{}, err
	}
	return identity.SignedIn{
		Email:     user.Email,
		UserID:    user.ID,
		ExpiresAt: time.Unix(row.ExpiresAt.Unix(), 0),
	}, nil
}

func (p *Provider) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// wrap passes ProviderErrors through and turns storage failures into one.
func (p *Provider) wrap(op string, err error) error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	p.logger.Error(op+" failed", zap.Error(err))
	return identity.NewError("INTERNAL", identity.GenericMessage, fmt.Errorf("%s: %w", op, err))
}

// =============================================================================
// THROTTLING
// =============================================================================

func (p *Provider) allowAttempt(email string) bool {
	if p.attemptsPerMinute <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	lim, ok := p.limiters[email]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.attemptsPerMinute)), p.attemptsPerMinute)
		p.limiters[email] = lim
	}
	return lim.AllowN(p.now(), 1)
}

func (p *Provider) resetAttempts(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, email)
}

// =============================================================================
// EMAIL
// =============================================================================

// normalizeEmail folds an address to the form it is stored under: NFKC,
// trimmed and lower-cased. Display-name forms ("Bob <bob@x>") are rejected.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(norm.NFKC.String(strings.TrimSpace(raw)))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", identity.Errorf(identity.CodeInvalidEmail, err)
	}
	return email, nil
}
