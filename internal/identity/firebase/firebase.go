// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/identity"
	"github.com/jeranaias/authform/internal/logging"
	"github.com/jeranaias/authform/internal/util"
)

// DefaultEndpoint is the production Identity Toolkit API.
const DefaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Provider.
type Option func(*Provider)

// WithEndpoint points the provider at another Identity Toolkit base URL, such
// as the auth emulator.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		if endpoint != "" {
			p.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(p *Provider) {
		p.http.RetryMax = n
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.http.HTTPClient.Timeout = d
		}
	}
}

// WithRetryWait sets the backoff bounds between retries.
func WithRetryWait(min, max time.Duration) Option {
	return func(p *Provider) {
		p.http.RetryWaitMin = min
		p.http.RetryWaitMax = max
	}
}

// WithLogger sets the logger. It is also used for retry diagnostics.
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

// Provider signs users up and in through the Firebase Authentication REST
// API and keeps the resulting session in a local file.
type Provider struct {
	apiKey   string
	endpoint string
	store    *identity.FileStore
	http     *retryablehttp.Client
	logger   *zap.Logger
	now      func() time.Time
}

// New returns a provider for the project identified by apiKey, persisting
// its session to sessionFile.
func New(apiKey, sessionFile string, opts ...Option) *Provider {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 30 * time.Second

	p := &Provider{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		store:    identity.NewFileStore(sessionFile),
		http:     client,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.http.Logger = leveledLogger{p.logger.Sugar().Named("http")}
	return p
}

// Name implements identity.Named.
func (p *Provider) Name() string { return "firebase" }

// WatchPath implements identity.Watchable.
func (p *Provider) WatchPath() string { return p.store.Path() }

// CurrentSession returns the persisted session. As with the Firebase SDK the
// session outlives its ID token; the refresh token keeps it alive.
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

// CreateUser calls accounts:signUp. The new user is signed in.
func (p *Provider) CreateUser(ctx context.Context, email, password string) (identity.SignedIn, error) {
	return p.authenticate(ctx, "accounts:signUp", email, password)
}

// SignIn calls accounts:signInWithPassword.
func (p *Provider) SignIn(ctx context.Context, email, password string) (identity.SignedIn, error) {
	return p.authenticate(ctx, "accounts:signInWithPassword", email, password)
}

// SignOut forgets the local session. Firebase ID tokens cannot be revoked
// individually, so there is no network call.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.store.Clear(); err != nil {
		return identity.NewError("INTERNAL", identity.GenericMessage, err)
	}
	p.logger.Info("signed out")
	return nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type authRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type authResponse struct {
	IDToken      string `json:"idToken"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// REQUESTS
// =============================================================================

func (p *Provider) authenticate(ctx context.Context, method, email, password string) (identity.SignedIn, error) {
	body, err := json.Marshal(authRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return identity.SignedIn{}, identity.NewError("INTERNAL", identity.GenericMessage, err)
	}

	var resp authResponse
	if err := p.post(ctx, method, body, &resp); err != nil {
		p.logger.Info("request rejected",
			zap.String("method", method),
			zap.String("email", util.MaskEmail(email)),
			zap.Error(err))
		return identity.SignedIn{}, err
	}

	rec := identity.Record{
		Provider:     p.Name(),
		Email:        resp.Email,
		UserID:       resp.LocalID,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp),
		SignedInAt:   p.now(),
	}
	if rec.Email == "" {
		rec.Email = email
	}
	if err := p.store.Save(rec); err != nil {
		return identity.SignedIn{}, identity.NewError("INTERNAL", identity.GenericMessage, err)
	}

	p.logger.Info("authenticated", zap.String("method", method), zap.String("uid", rec.UserID))
	return rec.Session(), nil
}

// expiry prefers the token's own exp claim and falls back to expiresIn.
func (p *Provider) expiry(resp authResponse) time.Time {
	if exp, err := identity.PeekExpiry(resp.IDToken); err == nil {
		return exp
	}
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil && secs > 0 {
		return p.now().Add(time.Duration(secs) * time.Second).Truncate(time.Second)
	}
	return time.Time{}
}

func (p *Provider) post(ctx context.Context, method string, body []byte, out interface{}) error {
	// The key travels in a header so it never appears in logged URLs.
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/"+method, bytes.NewReader(body))
	if err != nil {
		return identity.NewError("INTERNAL", identity.GenericMessage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return identity.Errorf(identity.CodeNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return identity.Errorf(identity.CodeNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return identity.NewError("INTERNAL", identity.GenericMessage, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeError turns an Identity Toolkit error body into a ProviderError.
// Messages look like "EMAIL_EXISTS" or "WEAK_PASSWORD : Password should be
// at least 6 characters".
func decodeError(status int, data []byte) error {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Error.Message == "" {
		return identity.NewError(fmt.Sprintf("HTTP_%d", status), identity.GenericMessage,
			fmt.Errorf("unexpected status %d: %s", status, util.TruncateWidth(string(data), 200)))
	}

	code, detail, _ := strings.Cut(er.Error.Message, " : ")
	code = strings.TrimSpace(code)
	cause := errors.New(er.Error.Message)

	if code == identity.CodeWeakPassword {
		msg := "The password must be 6 characters long or more."
		if detail != "" {
			msg = detail + "."
		}
		return identity.NewError(code, msg, cause)
	}
	if msg := identity.MessageFor(code); msg != "" {
		return identity.NewError(code, msg, cause)
	}
	if detail != "" {
		return identity.NewError(code, detail, cause)
	}
	return identity.NewError(code, er.Error.Message, cause)
}

// =============================================================================
// LOGGING ADAPTER
// =============================================================================

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
