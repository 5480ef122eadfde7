// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AUTHFORM_HOME", dir)
	for _, env := range []string{
		"AUTHFORM_PROVIDER", "AUTHFORM_DATABASE", "AUTHFORM_TOKEN_SECRET",
		"AUTHFORM_FIREBASE_API_KEY", "AUTHFORM_FIREBASE_ENDPOINT",
		"AUTHFORM_OIDC_ISSUER", "AUTHFORM_OIDC_CLIENT_ID",
		"AUTHFORM_OIDC_CLIENT_SECRET", "AUTHFORM_LOG_LEVEL",
	} {
		t.Setenv(env, "")
	}
	return dir
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Kind != ProviderLocal {
		t.Errorf("Provider.Kind = %q, want %q", cfg.Provider.Kind, ProviderLocal)
	}
	if want := filepath.Join(dir, "identity.db"); cfg.Local.DatabasePath != want {
		t.Errorf("Local.DatabasePath = %q, want %q", cfg.Local.DatabasePath, want)
	}
	if want := filepath.Join(dir, "authform.log"); cfg.Logging.Path != want {
		t.Errorf("Logging.Path = %q, want %q", cfg.Logging.Path, want)
	}
	if cfg.Local.MinPasswordLength != 6 {
		t.Errorf("Local.MinPasswordLength = %d, want 6", cfg.Local.MinPasswordLength)
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	data := `
[provider]
kind = "firebase"

[firebase]
api_key = "abc123"
endpoint = "http://localhost:9099/identitytoolkit.googleapis.com/v1/"
max_retries = 1

[logging]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Kind != ProviderFirebase {
		t.Errorf("Provider.Kind = %q, want firebase", cfg.Provider.Kind)
	}
	if cfg.Firebase.APIKey != "abc123" {
		t.Errorf("Firebase.APIKey = %q, want abc123", cfg.Firebase.APIKey)
	}
	if want := "http://localhost:9099/identitytoolkit.googleapis.com/v1"; cfg.Firebase.Endpoint != want {
		t.Errorf("Firebase.Endpoint = %q, want %q (trailing slash trimmed)", cfg.Firebase.Endpoint, want)
	}
	if cfg.Firebase.MaxRetries != 1 {
		t.Errorf("Firebase.MaxRetries = %d, want 1", cfg.Firebase.MaxRetries)
	}
	if cfg.Firebase.TimeoutSecs != 30 {
		t.Errorf("Firebase.TimeoutSecs = %d, want default 30", cfg.Firebase.TimeoutSecs)
	}

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perm = %o, want 600 after load", info.Mode().Perm())
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	data := `{"provider": {"kind": "oidc"}, "oidc": {"issuer": "https://id.example.com", "client_id": "cli"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Kind != ProviderOIDC || cfg.OIDC.ClientID != "cli" {
		t.Errorf("got kind=%q client_id=%q, want oidc/cli", cfg.Provider.Kind, cfg.OIDC.ClientID)
	}
	if len(cfg.OIDC.Scopes) != 3 {
		t.Errorf("OIDC.Scopes = %v, want defaults", cfg.OIDC.Scopes)
	}
}

func TestLoad_InvalidFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[provider\nkind="), 0600)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
	if cfg == nil || cfg.Provider.Kind != ProviderLocal {
		t.Errorf("Load() should still return defaults, got %+v", cfg)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("AUTHFORM_PROVIDER", "firebase")
	t.Setenv("AUTHFORM_FIREBASE_API_KEY", "from-env")
	t.Setenv("AUTHFORM_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Provider.Kind != "firebase" {
		t.Errorf("Provider.Kind = %q, want firebase", cfg.Provider.Kind)
	}
	if cfg.Firebase.APIKey != "from-env" {
		t.Errorf("Firebase.APIKey = %q, want from-env", cfg.Firebase.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults ok", func(c *Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Provider.Kind = "ldap" }, "provider.kind"},
		{"firebase needs key", func(c *Config) { c.Provider.Kind = ProviderFirebase }, "firebase.api_key"},
		{"firebase bad endpoint", func(c *Config) {
			c.Provider.Kind = ProviderFirebase
			c.Firebase.APIKey = "k"
			c.Firebase.Endpoint = "ftp://x"
		}, "firebase.endpoint"},
		{"oidc needs client", func(c *Config) {
			c.Provider.Kind = ProviderOIDC
			c.OIDC.Issuer = "https://id.example.com"
		}, "oidc.client_id"},
		{"bcrypt cost range", func(c *Config) { c.Local.BcryptCost = 2 }, "local.bcrypt_cost"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidateErrors", err)
			}
			found := false
			for _, v := range verrs {
				if v.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error on %s", err, tt.wantField)
			}
		})
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Provider.Kind = ProviderOIDC
	cfg.OIDC.Issuer = "https://id.example.com"
	cfg.OIDC.ClientID = "form"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.OIDC.Issuer != cfg.OIDC.Issuer || loaded.Provider.Kind != ProviderOIDC {
		t.Errorf("round trip lost fields: %+v", loaded.OIDC)
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("local.bcrypt_cost", "12"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Local.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.Local.BcryptCost)
	}
	if err := cfg.Set("oidc.scopes", "openid, email"); err != nil {
		t.Fatalf("Set(scopes) error = %v", err)
	}
	if len(cfg.OIDC.Scopes) != 2 || cfg.OIDC.Scopes[1] != "email" {
		t.Errorf("Scopes = %v, want [openid email]", cfg.OIDC.Scopes)
	}

	v, err := cfg.Get("oidc.client_id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "" {
		t.Errorf("Get(oidc.client_id) = %v, want empty", v)
	}

	if _, err := cfg.Get("nope.field"); err == nil {
		t.Error("Get(unknown) error = nil, want error")
	}
	if _, err := cfg.Get("local.bcrypt_cost.x"); err == nil {
		t.Error("Get(through scalar) error = nil, want error")
	}
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	want := []string{"provider.kind", "local.database_path", "firebase.api_key", "oidc.scopes", "ui.show_keyboard_help"}
	joined := strings.Join(keys, ",")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("GetAllKeys() missing %q", w)
		}
	}
	for _, k := range keys {
		if _, err := Default().Get(k); err != nil {
			t.Errorf("Get(%q) from GetAllKeys failed: %v", k, err)
		}
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Firebase.APIKey = "AIza-secret"
	cfg.OIDC.ClientSecret = "shh"
	cfg.Local.TokenSecret = "hmac"

	out := cfg.String()
	for _, secret := range []string{"AIza-secret", "shh", "hmac"} {
		if strings.Contains(out, secret) {
			t.Errorf("String() leaks %q", secret)
		}
	}
	if cfg.Firebase.APIKey != "AIza-secret" {
		t.Error("String() modified the original config")
	}
}
