// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authform

import (
	"fmt"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/authform/internal/identity"
)

// =============================================================================
// SESSION FILE WATCHER
// =============================================================================

// sessionWatcher reports changes to a provider's session file made by other
// processes, such as `authform signout` in another terminal. It watches the
// parent directory because session files are replaced by rename.
type sessionWatcher struct {
	fs      *fsnotify.Watcher
	names   map[string]bool
	changes chan struct{}
	logger  *zap.Logger
	once    sync.Once
}

// watchSessionFile starts watching path and its sqlite -wal and -journal
// siblings. Bursts of events collapse into one pending notification.
func watchSessionFile(path string, logger *zap.Logger) (*sessionWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir, base := filepath.Dir(path), filepath.Base(path)
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &sessionWatcher{
		fs: fs,
		names: map[string]bool{
			base:              true,
			base + "-wal":     true,
			base + "-journal": true,
		},
		changes: make(chan struct{}, 1),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

func (w *sessionWatcher) run() {
	defer close(w.changes)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.names[filepath.Base(ev.Name)] || !relevant(ev) {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session watcher error", zap.Error(err))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// Changes delivers one value per burst of changes and is closed by Close.
func (w *sessionWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher. It is safe to call more than once.
func (w *sessionWatcher) Close() {
	w.once.Do(func() {
		if err := w.fs.Close(); err != nil {
			w.logger.Debug("close session watcher", zap.Error(err))
		}
	})
}

// waitForChange blocks until the next change and reports it to Update. It
// yields no message once the watcher is closed.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return sessionChangedMsg{}
	}
}

// startWatching watches the provider's session file when it has one. The
// watcher joins the form's subscriptions so Dispose stops it.
func (m *Model) startWatching() tea.Cmd {
	if m.changes != nil || m.disposed {
		return nil
	}
	wp, ok := m.provider.(identity.Watchable)
	if !ok {
		return nil
	}
	path := wp.WatchPath()
	if path == "" {
		return nil
	}

	w, err := watchSessionFile(path, m.logger)
	if err != nil {
		m.logger.Warn("session changes from other processes will not be shown",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	m.subs.Add(w.Close)
	m.changes = w.Changes()
	m.logger.Debug("watching session file", zap.String("path", path))
	return waitForChange(m.changes)
}
