// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/calmistry/assistant-tui/internal/config"
	"github.com/calmistry/assistant-tui/internal/logging"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdPlain
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdPlain:
		return "plain"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	URL        string
	ConfigPath string
	LogLevel   string
	Theme      string
	Plain      bool
	NoHistory  bool

	// Command-specific
	Subcommand string
	Force      bool

	Raw []string
}

// Flags that take a value, and flags that never do.
var (
	valueFlags = []string{"url", "config", "log-level", "theme"}
	boolFlags  = []string{"plain", "no-history", "force", "help", "h", "version", "v"}
)

const usageText = `assistant - terminal chat client for the Calmistry assistant

Usage:
  assistant [flags]                 Start the chat view (default)
  assistant --plain [flags]         Line-oriented chat for pipes and dumb terminals
  assistant config show             Print the effective configuration
  assistant config init [--force]   Write a default config file
  assistant config path             Print the config file location
  assistant version                 Print version information
  assistant help                    Show this help

Flags:
  --url URL          Backend origin (default http://127.0.0.1:3000)
  --config PATH      Config file (TOML or JSON)
  --log-level LEVEL  debug, info, warn or error
  --theme THEME      auto, dark or light
  --plain            Use the plain REPL even on a terminal
  --no-history       Start with an empty conversation

Chat keys:
  Enter              Send the message
  Esc                Stop the reply in progress
  Ctrl+C             Stop, or quit when idle
  PgUp/PgDn          Scroll

Environment:
  CALMISTRY_HOME, CALMISTRY_URL, CALMISTRY_THEME, CALMISTRY_LOG_LEVEL

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "assistant version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		URL:        p.Flag("url"),
		ConfigPath: p.Flag("config"),
		LogLevel:   p.Flag("log-level"),
		Theme:      p.Flag("theme"),
		Plain:      p.BoolFlag("plain"),
		NoHistory:  p.BoolFlag("no-history"),
		Force:      p.BoolFlag("force"),
		Raw:        argv,
	}

	if err := checkFlags(p); err != nil {
		return CmdHelp, args, err
	}
	if p.BoolFlag("help") || p.BoolFlag("h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") || p.BoolFlag("v") {
		return CmdVersion, args, nil
	}
	if args.LogLevel != "" && !logging.ValidLevel(args.LogLevel) {
		return CmdHelp, args, fmt.Errorf("invalid --log-level %q, must be one of: debug, info, warn, error", args.LogLevel)
	}
	if args.Theme != "" {
		switch strings.ToLower(args.Theme) {
		case "auto", "dark", "light":
		default:
			return CmdHelp, args, fmt.Errorf("invalid --theme %q, must be one of: auto, dark, light", args.Theme)
		}
	}

	switch p.Subcommand() {
	case "":
		if args.Plain {
			return CmdPlain, args, nil
		}
		return CmdTUI, args, nil
	case "config":
		args.Subcommand = p.Positional(1)
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		return CmdConfig, args, nil
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, fmt.Errorf("unknown command %q", p.Subcommand())
	}
}

// checkFlags rejects unknown flags and value flags given without a value.
func checkFlags(p *ArgParser) error {
	known := make(map[string]bool)
	for _, name := range valueFlags {
		known[name] = true
	}
	for _, name := range boolFlags {
		known[name] = true
	}
	for _, name := range p.FlagNames() {
		if !known[name] {
			return fmt.Errorf("unknown flag --%s", name)
		}
	}
	for _, name := range valueFlags {
		if p.BoolFlag(name) {
			return fmt.Errorf("flag --%s requires a value", name)
		}
	}
	return nil
}

// ApplyOverrides copies flag values over cfg. Flags win over the config
// file and the environment.
func ApplyOverrides(cfg *config.Config, args Args) error {
	if args.URL != "" {
		cfg.Backend.BaseURL = args.URL
	}
	if args.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(args.LogLevel)
	}
	if args.Theme != "" {
		cfg.UI.Theme = strings.ToLower(args.Theme)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
