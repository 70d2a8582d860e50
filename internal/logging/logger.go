// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the process-wide structured logger.
//
// The TUI owns stdout, so records go to a file or are discarded.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	levelVar = new(slog.LevelVar)

	// L is the process-wide logger. It discards records until Init is called.
	L = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: levelVar}))

	mu      sync.Mutex
	current io.Closer
)

// Options controls where and how records are written.
type Options struct {
	Enabled bool
	Level   string // debug, info, warn, error
	File    string // Destination path; empty means stderr
}

// Init installs a JSON logger according to opts and returns a function
// that closes the destination file.
func Init(opts Options) (func() error, error) {
	SetLevel(opts.Level)

	mu.Lock()
	defer mu.Unlock()

	if current != nil {
		current.Close()
		current = nil
	}

	if !opts.Enabled {
		L = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: levelVar}))
		return func() error { return nil }, nil
	}

	var w io.Writer = os.Stderr
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		current = f
	}

	L = New(w)
	return closeCurrent, nil
}

// New builds a JSON logger writing to w that shares the global level.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	levelVar.Set(ParseLevel(lvl))
}

// Level returns the current global level.
func Level() slog.Level {
	return levelVar.Level()
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether lvl names a level ParseLevel understands.
func ValidLevel(lvl string) bool {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func closeCurrent() error {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return nil
	}
	err := current.Close()
	current = nil
	return err
}
