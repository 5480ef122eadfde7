// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jeranaias/authform/internal/identity"
)

// ErrNoRows is returned by lookups that find nothing.
var ErrNoRows = errors.New("not found")

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// =============================================================================
// DATABASE SETUP
// =============================================================================

// openDB opens (creating if needed) the identity database and applies
// migrations. A single connection is used so writes from the TUI and the CLI
// serialise through sqlite's own locking.
func openDB(path string) (*sql.DB, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if path != memoryPath {
		// The database holds password hashes.
		_ = os.Chmod(path, 0600)
	}
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		last_sign_in_at INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL,
		issued_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		revoked_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
	`CREATE TABLE IF NOT EXISTS current_session (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// runMigrations applies every migration not yet recorded in schema_version.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			i+1, time.Now().Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

type userRow struct {
	ID           string
	Email        string
	PasswordHash []byte
}

type sessionRow struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userByEmail(ctx context.Context, q queryer, email string) (userRow, error) {
	var u userRow
	err := q.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return userRow{}, ErrNoRows
	}
	return u, err
}

// insertUser adds u. Losing a race with another process for the same
// email surfaces as EMAIL_EXISTS, not as a storage failure.
func insertUser(ctx context.Context, q queryer, u userRow, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, now.Unix())
	if isUniqueViolation(err) {
		return identity.Errorf(identity.CodeEmailExists, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func touchSignIn(ctx context.Context, q queryer, userID string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET last_sign_in_at = ? WHERE id = ?`, now.Unix(), userID)
	return err
}

func insertSession(ctx context.Context, q queryer, s sessionRow, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token, issued_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Token, now.Unix(), s.ExpiresAt.Unix())
	return err
}

func setCurrentSession(ctx context.Context, q queryer, sessionID string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO current_session (slot, session_id) VALUES (1, ?)
		 ON CONFLICT(slot) DO UPDATE SET session_id = excluded.session_id`, sessionID)
	return err
}

func currentSession(ctx context.Context, q queryer) (sessionRow, error) {
	var (
		s       sessionRow
		expires int64
		revoked sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.token, s.expires_at, s.revoked_at
		 FROM current_session c JOIN sessions s ON s.id = c.session_id
		 WHERE c.slot = 1`,
	).Scan(&s.ID, &s.UserID, &s.Token, &expires, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionRow{}, ErrNoRows
	}
	if err != nil {
		return sessionRow{}, err
	}
	s.ExpiresAt = time.Unix(expires, 0)
	s.Revoked = revoked.Valid
	return s, nil
}

func revokeSession(ctx context.Context, q queryer, sessionID string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		now.Unix(), sessionID)
	return err
}

func clearCurrentSession(ctx context.Context, q queryer) error {
	_, err := q.ExecContext(ctx, `DELETE FROM current_session WHERE slot = 1`)
	return err
}

func getSetting(ctx context.Context, q queryer, key string) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRows
	}
	return v, err
}

func putSetting(ctx context.Context, q queryer, key, value string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
