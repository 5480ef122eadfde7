// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/authform/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Provider kinds understood by identity.Open.
const (
	ProviderLocal    = "local"
	ProviderFirebase = "firebase"
	ProviderOIDC     = "oidc"
)

// Config represents the complete authform configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Provider ProviderConfig `toml:"provider" json:"provider"`
	Local    LocalConfig    `toml:"local" json:"local"`
	Firebase FirebaseConfig `toml:"firebase" json:"firebase"`
	OIDC     OIDCConfig     `toml:"oidc" json:"oidc"`
	Logging  LoggingConfig  `toml:"logging" json:"logging"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// ProviderConfig selects the identity backend.
type ProviderConfig struct {
	// Kind is one of "local", "firebase", "oidc".
	Kind string `toml:"kind" json:"kind"`
}

// LocalConfig configures the sqlite-backed identity provider.
type LocalConfig struct {
	DatabasePath string `toml:"database_path" json:"database_path"`
	// TokenSecret signs session tokens. Empty means generate one and keep it
	// in the database.
	TokenSecret       string `toml:"token_secret" json:"token_secret"`
	SessionTTLHours   int    `toml:"session_ttl_hours" json:"session_ttl_hours"`
	BcryptCost        int    `toml:"bcrypt_cost" json:"bcrypt_cost"`
	MinPasswordLength int    `toml:"min_password_length" json:"min_password_length"`
	// AttemptsPerMinute throttles sign-in attempts per email address.
	AttemptsPerMinute int `toml:"attempts_per_minute" json:"attempts_per_minute"`
}

// FirebaseConfig configures the Identity Toolkit REST provider.
type FirebaseConfig struct {
	APIKey      string `toml:"api_key" json:"api_key"`
	Endpoint    string `toml:"endpoint" json:"endpoint"`
	SessionFile string `toml:"session_file" json:"session_file"`
	MaxRetries  int    `toml:"max_retries" json:"max_retries"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
}

// OIDCConfig configures the OpenID Connect password-grant provider.
type OIDCConfig struct {
	Issuer       string   `toml:"issuer" json:"issuer"`
	ClientID     string   `toml:"client_id" json:"client_id"`
	ClientSecret string   `toml:"client_secret" json:"client_secret"`
	Scopes       []string `toml:"scopes" json:"scopes"`
	SessionFile  string   `toml:"session_file" json:"session_file"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// Encoding is "json" or "console".
	Encoding string `toml:"encoding" json:"encoding"`
	// Path is the log file. The form owns the terminal so logs never go to stdout.
	Path string `toml:"path" json:"path"`
}

// UIConfig contains form display settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme            string `toml:"theme" json:"theme"`
	ShowKeyboardHelp bool   `toml:"show_keyboard_help" json:"show_keyboard_help"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	configVersion = "1"

	DefaultFirebaseEndpoint = "https://identitytoolkit.googleapis.com/v1"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:  configVersion,
		Provider: ProviderConfig{Kind: ProviderLocal},
		Local: LocalConfig{
			SessionTTLHours:   24 * 14,
			BcryptCost:        10,
			MinPasswordLength: 6,
			AttemptsPerMinute: 5,
		},
		Firebase: FirebaseConfig{
			Endpoint:    DefaultFirebaseEndpoint,
			MaxRetries:  3,
			TimeoutSecs: 30,
		},
		OIDC: OIDCConfig{
			Scopes: []string{"openid", "email", "profile"},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		UI: UIConfig{
			Theme:            "auto",
			ShowKeyboardHelp: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the authform configuration directory. AUTHFORM_HOME
// overrides the default of ~/.authform.
func ConfigDir() (string, error) {
	if dir := os.Getenv("AUTHFORM_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".authform"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600; they hold API keys
// and client secrets.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.authform. TOML wins over JSON; with
// neither present the defaults are used. Environment overrides are applied
// last, then defaults are filled and the result is validated.
//
// A file that fails to parse does not stop the program: the defaults are
// returned together with the parse error.
func Load() (*Config, error) {
	var loadErr error

	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err != nil {
			loadErr = err
			break
		}
		return cfg, nil
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return Default(), errors.Join(loadErr, err)
	}
	return cfg, loadErr
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file, picking the decoder
// by extension (TOML unless it ends in .json).
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# authform configuration file\n")
	buf.WriteString("# Generated by authform - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the settings of the selected provider plus the shared
// sections. Settings of providers that are not selected are not checked.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	switch c.Provider.Kind {
	case ProviderLocal:
		if c.Local.SessionTTLHours <= 0 {
			add("local.session_ttl_hours", "must be positive")
		}
		if c.Local.BcryptCost < 4 || c.Local.BcryptCost > 31 {
			add("local.bcrypt_cost", "must be between 4 and 31")
		}
		if c.Local.MinPasswordLength < 1 {
			add("local.min_password_length", "must be at least 1")
		}
		if c.Local.AttemptsPerMinute < 0 {
			add("local.attempts_per_minute", "must not be negative")
		}
	case ProviderFirebase:
		if c.Firebase.APIKey == "" {
			add("firebase.api_key", "is required (or set AUTHFORM_FIREBASE_API_KEY)")
		}
		if err := validateURL(c.Firebase.Endpoint); err != nil {
			add("firebase.endpoint", err.Error())
		}
		if c.Firebase.MaxRetries < 0 {
			add("firebase.max_retries", "must not be negative")
		}
		if c.Firebase.TimeoutSecs <= 0 {
			add("firebase.timeout_secs", "must be positive")
		}
	case ProviderOIDC:
		if err := validateURL(c.OIDC.Issuer); err != nil {
			add("oidc.issuer", err.Error())
		}
		if c.OIDC.ClientID == "" {
			add("oidc.client_id", "is required")
		}
	default:
		add("provider.kind", fmt.Sprintf("unknown provider %q (want local, firebase or oidc)", c.Provider.Kind))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		add("logging.encoding", fmt.Sprintf("unknown encoding %q", c.Logging.Encoding))
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		add("ui.theme", fmt.Sprintf("unknown theme %q", c.UI.Theme))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// SetDefaults fills zero values with defaults and resolves file paths that
// live under the config directory.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	c.Provider.Kind = strings.ToLower(c.Provider.Kind)

	if c.Local.SessionTTLHours == 0 {
		c.Local.SessionTTLHours = d.Local.SessionTTLHours
	}
	if c.Local.BcryptCost == 0 {
		c.Local.BcryptCost = d.Local.BcryptCost
	}
	if c.Local.MinPasswordLength == 0 {
		c.Local.MinPasswordLength = d.Local.MinPasswordLength
	}
	if c.Firebase.Endpoint == "" {
		c.Firebase.Endpoint = d.Firebase.Endpoint
	}
	c.Firebase.Endpoint = strings.TrimRight(c.Firebase.Endpoint, "/")
	if c.Firebase.TimeoutSecs == 0 {
		c.Firebase.TimeoutSecs = d.Firebase.TimeoutSecs
	}
	if len(c.OIDC.Scopes) == 0 {
		c.OIDC.Scopes = d.OIDC.Scopes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = d.Logging.Encoding
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}

	dir, err := ConfigDir()
	if err != nil {
		return
	}
	if c.Local.DatabasePath == "" {
		c.Local.DatabasePath = filepath.Join(dir, "identity.db")
	}
	if c.Firebase.SessionFile == "" {
		c.Firebase.SessionFile = filepath.Join(dir, "firebase-session.json")
	}
	if c.OIDC.SessionFile == "" {
		c.OIDC.SessionFile = filepath.Join(dir, "oidc-session.json")
	}
	if c.Logging.Path == "" {
		c.Logging.Path = filepath.Join(dir, "authform.log")
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - AUTHFORM_PROVIDER: overrides provider.kind
//   - AUTHFORM_DATABASE: overrides local.database_path
//   - AUTHFORM_TOKEN_SECRET: overrides local.token_secret
//   - AUTHFORM_FIREBASE_API_KEY: overrides firebase.api_key
//   - AUTHFORM_FIREBASE_ENDPOINT: overrides firebase.endpoint
//   - AUTHFORM_OIDC_ISSUER: overrides oidc.issuer
//   - AUTHFORM_OIDC_CLIENT_ID: overrides oidc.client_id
//   - AUTHFORM_OIDC_CLIENT_SECRET: overrides oidc.client_secret
//   - AUTHFORM_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"AUTHFORM_PROVIDER", &c.Provider.Kind},
		{"AUTHFORM_DATABASE", &c.Local.DatabasePath},
		{"AUTHFORM_TOKEN_SECRET", &c.Local.TokenSecret},
		{"AUTHFORM_FIREBASE_API_KEY", &c.Firebase.APIKey},
		{"AUTHFORM_FIREBASE_ENDPOINT", &c.Firebase.Endpoint},
		{"AUTHFORM_OIDC_ISSUER", &c.OIDC.Issuer},
		{"AUTHFORM_OIDC_CLIENT_ID", &c.OIDC.ClientID},
		{"AUTHFORM_OIDC_CLIENT_SECRET", &c.OIDC.ClientSecret},
		{"AUTHFORM_LOG_LEVEL", &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "local.bcrypt_cost").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent. "client_id" and "ClientID" both fold to "clientid".
func normalizeFieldName(name string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns every configuration key in dot notation, sorted.
func GetAllKeys() []string {
	var keys []string
	var walk func(prefix string, t reflect.Type)
	walk = func(prefix string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" {
				name = strings.ToLower(f.Name)
			}
			if prefix != "" {
				name = prefix + "." + name
			}
			if f.Type.Kind() == reflect.Struct {
				walk(name, f.Type)
				continue
			}
			keys = append(keys, name)
		}
	}
	walk("", reflect.TypeOf(Config{}))
	sort.Strings(keys)
	return keys
}

// IsSecretKey reports whether a dot-notation key holds a credential.
func IsSecretKey(key string) bool {
	switch key {
	case "local.token_secret", "firebase.api_key", "oidc.client_secret":
		return true
	}
	return false
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.OIDC.Scopes = append([]string(nil), c.OIDC.Scopes...)
	return &clone
}

// Redacted returns a copy with credentials replaced so it can be printed or logged.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	for _, s := range []*string{&safe.Local.TokenSecret, &safe.Firebase.APIKey, &safe.OIDC.ClientSecret} {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	return safe
}

// String returns the redacted config as JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
