// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the assistant client.
//
// # Sources
//
// Values are layered, later sources winning:
//
//  1. Built-in defaults (Default)
//  2. ~/.calmistry/config.toml, or config.json when no TOML file exists
//  3. .env files (working directory, then config directory); existing variables are kept
//  4. CALMISTRY_* environment variables (ApplyEnvOverrides)
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    // cfg still holds defaults when only the file was unreadable
//	}
//	url := cfg.Backend.BaseURL
//
// Watch reloads the file when it changes on disk:
//
//	stop, err := config.Watch(ctx, path, func(cfg *config.Config, err error) { ... })
package config
