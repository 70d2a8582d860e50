// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/calmistry/assistant-tui/internal/logging"
)

// reloadSettle is how long a burst of write events is allowed to settle
// before the file is re-read. Editors often write a file in several steps.
const reloadSettle = 150 * time.Millisecond

// ReloadFunc receives the freshly loaded config, or the error that prevented loading it.
type ReloadFunc func(cfg *Config, err error)

// Watch reloads the config file at path whenever it changes and passes the
// result to onReload. The parent directory is watched so atomic
// rename-over-write saves are seen. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, onReload ReloadFunc) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	go watchLoop(ctx, watcher, absPath, onReload)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onReload ReloadFunc) {
	defer watcher.Close()

	// At most one reload per settle window; bursts collapse into the next tick.
	limiter := rate.NewLimiter(rate.Every(reloadSettle), 1)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending == nil {
				delay := limiter.Reserve().Delay()
				if delay < reloadSettle {
					delay = reloadSettle
				}
				pending = time.After(delay)
			}

		case <-pending:
			pending = nil
			cfg, err := LoadFromPath(path)
			if err != nil {
				logging.L.Warn("config reload failed", "path", path, "error", err)
			} else {
				logging.L.Info("config reloaded", "path", path)
			}
			onReload(cfg, err)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.L.Warn("config watcher error", "error", err)
		}
	}
}
