// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/authform/internal/identity"
)

// fakeToolkit is a minimal Identity Toolkit: it stores accounts in memory
// and answers signUp and signInWithPassword.
type fakeToolkit struct {
	accounts map[string]string
	calls    atomic.Int32
	failures atomic.Int32 // respond 503 this many times first
}

func (f *fakeToolkit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.Header.Get("X-Goog-Api-Key") != "test-key" {
		writeError(w, http.StatusBadRequest, "API key not valid. Please pass a valid API key.")
		return
	}
	if r.URL.Query().Get("key") != "" {
		writeError(w, http.StatusBadRequest, "key must not be in the query")
		return
	}

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.ReturnSecureToken {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	switch r.URL.Path {
	case "/v1/accounts:signUp":
		if _, ok := f.accounts[req.Email]; ok {
			writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		if len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
			return
		}
		f.accounts[req.Email] = req.Password
	case "/v1/accounts:signInWithPassword":
		pw, ok := f.accounts[req.Email]
		if !ok {
			writeError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
			return
		}
		if pw != req.Password {
			writeError(w, http.StatusBadRequest, "INVALID_PASSWORD")
			return
		}
	default:
		http.NotFound(w, r)
		return
	}

	json.NewEncoder(w).Encode(authResponse{
		IDToken:      testIDToken(req.Email),
		Email:        req.Email,
		RefreshToken: "refresh-" + req.Email,
		ExpiresIn:    "3600",
		LocalID:      "uid-" + req.Email,
	})
}

var tokenExpiry = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func testIDToken(email string) string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   tokenExpiry.Unix(),
	}).SignedString([]byte("irrelevant"))
	return tok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	var er errorResponse
	er.Error.Code = status
	er.Error.Message = msg
	json.NewEncoder(w).Encode(er)
}

func newTestProvider(t *testing.T) (*Provider, *fakeToolkit, string) {
	t.Helper()
	fake := &fakeToolkit{accounts: map[string]string{"known@example.com": "secret1"}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	sessionFile := filepath.Join(t.TempDir(), "session.json")
	p := New("test-key", sessionFile,
		WithEndpoint(srv.URL+"/v1/"),
		WithMaxRetries(2),
		WithRetryWait(time.Millisecond, 5*time.Millisecond),
	)
	return p, fake, sessionFile
}

func TestSignIn_PersistsSession(t *testing.T) {
	p, _, sessionFile := newTestProvider(t)

	assert.Equal(t, identity.SignedOut{}, p.CurrentSession())

	got, err := p.SignIn(context.Background(), "known@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "known@example.com", got.Email)
	assert.Equal(t, "uid-known@example.com", got.UserID)
	assert.True(t, got.ExpiresAt.Equal(tokenExpiry), "ExpiresAt = %v, want %v", got.ExpiresAt, tokenExpiry)

	email, ok := identity.EmailOf(p.CurrentSession())
	require.True(t, ok)
	assert.Equal(t, "known@example.com", email)

	info, err := os.Stat(sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A fresh provider on the same file sees the session.
	again := New("test-key", sessionFile)
	assert.True(t, identity.IsSignedIn(again.CurrentSession()))
}

func TestCreateUser(t *testing.T) {
	p, _, _ := newTestProvider(t)
	ctx := context.Background()

	got, err := p.CreateUser(ctx, "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.True(t, identity.IsSignedIn(p.CurrentSession()))

	_, err = p.CreateUser(ctx, "new@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, "The email address is already in use by another account.", err.Error())
	assert.True(t, identity.HasCode(err, identity.CodeEmailExists))

	_, err = p.CreateUser(ctx, "other@example.com", "123")
	require.Error(t, err)
	assert.Equal(t, "Password should be at least 6 characters.", err.Error())
	assert.True(t, identity.HasCode(err, identity.CodeWeakPassword))
}

func TestSignIn_Errors(t *testing.T) {
	p, _, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := p.SignIn(ctx, "missing@example.com", "x")
	assert.Equal(t, identity.MessageFor(identity.CodeEmailNotFound), err.Error())

	_, err = p.SignIn(ctx, "known@example.com", "wrong")
	assert.Equal(t, identity.MessageFor(identity.CodeInvalidPassword), err.Error())

	var pe *identity.ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, identity.SignedOut{}, p.CurrentSession())
}

func TestSignIn_RetriesServerErrors(t *testing.T) {
	p, fake, _ := newTestProvider(t)
	fake.failures.Store(2)

	_, err := p.SignIn(context.Background(), "known@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestSignIn_GivesUpAsNetworkError(t *testing.T) {
	p, fake, _ := newTestProvider(t)
	fake.failures.Store(10)

	_, err := p.SignIn(context.Background(), "known@example.com", "secret1")
	require.Error(t, err)
	assert.True(t, identity.HasCode(err, identity.CodeNetwork))
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestSignOut_ClearsFile(t *testing.T) {
	p, _, sessionFile := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, p.SignOut(ctx), "sign out with no session")

	_, err := p.SignIn(ctx, "known@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx))

	assert.Equal(t, identity.SignedOut{}, p.CurrentSession())
	_, statErr := os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCurrentSession_CorruptFileIsSignedOut(t *testing.T) {
	p, _, sessionFile := newTestProvider(t)
	require.NoError(t, os.WriteFile(sessionFile, []byte("{not json"), 0600))
	assert.Equal(t, identity.SignedOut{}, p.CurrentSession())
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{"known code", 400, `{"error":{"code":400,"message":"TOO_MANY_ATTEMPTS_TRY_LATER"}}`,
			identity.CodeTooManyAttempts, identity.MessageFor(identity.CodeTooManyAttempts)},
		{"code with detail", 400, `{"error":{"code":400,"message":"USER_DISABLED : gone"}}`,
			identity.CodeUserDisabled, identity.MessageFor(identity.CodeUserDisabled)},
		{"unknown with detail", 400, `{"error":{"code":400,"message":"QUOTA : Try tomorrow"}}`,
			"QUOTA", "Try tomorrow"},
		{"unknown bare", 400, `{"error":{"code":400,"message":"SOMETHING_NEW"}}`,
			"SOMETHING_NEW", "SOMETHING_NEW"},
		{"not json", 502, `<html>bad gateway</html>`,
			"HTTP_502", identity.GenericMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.status, []byte(tt.body))
			assert.True(t, identity.HasCode(err, tt.code), "err = %#v", err)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}
