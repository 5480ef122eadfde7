// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/authform/internal/util"
)

// Record is the persisted form of a remote session.
type Record struct {
	Provider     string    `json:"provider"`
	Email        string    `json:"email"`
	UserID       string    `json:"user_id"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	SignedInAt   time.Time `json:"signed_in_at"`
}

// Session converts the record to the value the form sees.
func (r Record) Session() SignedIn {
	return SignedIn{Email: r.Email, UserID: r.UserID, ExpiresAt: r.ExpiresAt}
}

// FileStore keeps one Record in a JSON file with 0600 permissions. Remote
// providers use it so a session survives restarts and is shared between the
// TUI and the CLI. Writes are atomic. Reads are cached until the file's size
// or modification time changes, so a sign-out from another process is seen
// on the next Load.
type FileStore struct {
	path string

	mu     sync.Mutex
	cached *Record
	stamp  fileStamp
}

type fileStamp struct {
	present bool
	size    int64
	modTime int64
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored record. ok is false when there is none. A corrupt
// file is reported as an error and callers treat it as absent.
func (s *FileStore) Load() (rec Record, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cached = nil
		s.stamp = fileStamp{}
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("stat session file: %w", err)
	}

	stamp := fileStamp{present: true, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if stamp == s.stamp && s.cached != nil {
		return *s.cached, true, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, false, fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode session file %s: %w", s.path, err)
	}
	if rec.Email == "" && rec.UserID == "" {
		return Record{}, false, fmt.Errorf("session file %s has no user", s.path)
	}
	s.cached = &rec
	s.stamp = stamp
	return rec, true, nil
}

// Save replaces the stored record.
func (s *FileStore) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	s.cached = &rec
	if info, err := os.Stat(s.path); err == nil {
		s.stamp = fileStamp{present: true, size: info.Size(), modTime: info.ModTime().UnixNano()}
	}
	return nil
}

// Clear removes the stored record.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := util.RemoveIfExists(s.path); err != nil {
		return fmt.Errorf("remove session file: %w", err)
	}
	s.cached = nil
	s.stamp = fileStamp{}
	return nil
}
