// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/calmistry/assistant-tui/internal/config"
	"github.com/calmistry/assistant-tui/internal/logging"
	"github.com/calmistry/assistant-tui/internal/ui/styles"
)

// =============================================================================
// LOADING
// =============================================================================

// LoadConfig loads the configuration named by args, or the default files
// when --config is absent, and applies flag overrides. It returns the path
// worth watching for changes; that file may not exist yet.
func LoadConfig(args Args) (*config.Config, string, error) {
	var (
		cfg *config.Config
		err error
	)
	path := args.ConfigPath

	if path != "" {
		cfg, err = config.LoadFromPath(path)
		if err != nil {
			return nil, "", err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, "", err
		}
		if err != nil {
			// Defaults are usable; report the broken file and carry on.
			logging.L.Warn("config file ignored", "error", err)
		}
		path = defaultConfigPath()
	}

	if err := ApplyOverrides(cfg, args); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// defaultConfigPath returns the existing default config file, preferring
// TOML, or the TOML location when neither exists.
func defaultConfigPath() string {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil {
		if _, err := os.Stat(jsonPath); err == nil {
			return jsonPath
		}
	}
	return tomlPath
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig runs "config show|init|path".
func HandleConfig(w io.Writer, args Args) error {
	switch args.Subcommand {
	case "show":
		return handleConfigShow(w, args)
	case "init":
		return handleConfigInit(w, args)
	case "path":
		return handleConfigPath(w, args)
	default:
		return fmt.Errorf("unknown config subcommand %q (want show, init or path)", args.Subcommand)
	}
}

func handleConfigShow(w io.Writer, args Args) error {
	cfg, path, err := LoadConfig(args)
	if err != nil {
		return err
	}

	source := path
	if _, statErr := os.Stat(path); statErr != nil {
		source = "built-in defaults"
	}
	fmt.Fprintf(w, "# Source: %s\n", source)

	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func handleConfigInit(w io.Writer, args Args) error {
	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPathTOML(); err != nil {
			return err
		}
	}

	_, err := os.Stat(path)
	switch {
	case err == nil && !args.Force:
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	cfg := config.Default()
	if err := ApplyOverrides(cfg, args); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	fmt.Fprintln(w, styles.RenderInfo("Wrote "+path))
	return nil
}

func handleConfigPath(w io.Writer, args Args) error {
	if args.ConfigPath != "" {
		fmt.Fprintln(w, args.ConfigPath)
		return nil
	}
	path := defaultConfigPath()
	if path == "" {
		return errors.New("cannot determine config directory")
	}
	fmt.Fprintln(w, path)
	return nil
}
