// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmistry/assistant-tui/internal/config"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"config"},
			wantSub: "config",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"config", "show", "--url", "http://x"},
			wantSub: "config",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("url") != "http://x" {
					t.Errorf("Flag(url) = %q, want %q", p.Flag("url"), "http://x")
				}
				if p.Positional(1) != "show" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "show")
				}
			},
		},
		{
			name: "flag with equals",
			args: []string{"--theme=dark"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("theme") != "dark" {
					t.Errorf("Flag(theme) = %q, want %q", p.Flag("theme"), "dark")
				}
			},
		},
		{
			name: "undeclared boolean at end",
			args: []string{"--json"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "declared boolean does not consume next arg",
			args:    []string{"--plain", "config", "path"},
			bools:   []string{"plain"},
			wantSub: "config",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("plain") {
					t.Error("BoolFlag(plain) should be true")
				}
				if p.PositionalCount() != 2 {
					t.Errorf("PositionalCount() = %d, want 2", p.PositionalCount())
				}
			},
		},
		{
			name: "explicit false",
			args: []string{"--plain=false"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("plain") {
					t.Error("BoolFlag(plain) should be false")
				}
				if !p.HasFlag("plain") {
					t.Error("HasFlag(plain) should be true")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--", "--not-a-flag"},
			wantSub: "--not-a-flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_Defaults(t *testing.T) {
	p := NewArgParser(nil)
	if p.Positional(0) != "" {
		t.Errorf("Positional(0) = %q, want empty", p.Positional(0))
	}
	if p.FlagOrDefault("url", "fallback") != "fallback" {
		t.Errorf("FlagOrDefault() = %q, want %q", p.FlagOrDefault("url", "fallback"), "fallback")
	}
	assert.Empty(t, p.FlagNames())
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		argv    []string
		wantCmd Command
		wantSub string
	}{
		{nil, CmdTUI, ""},
		{[]string{"--plain"}, CmdPlain, ""},
		{[]string{"config"}, CmdConfig, "show"},
		{[]string{"config", "init", "--force"}, CmdConfig, "init"},
		{[]string{"--no-history", "config", "path"}, CmdConfig, "path"},
		{[]string{"version"}, CmdVersion, ""},
		{[]string{"--version"}, CmdVersion, ""},
		{[]string{"help"}, CmdHelp, ""},
		{[]string{"-h"}, CmdHelp, ""},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%v) command = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if args.Subcommand != tt.wantSub {
				t.Errorf("Parse(%v) subcommand = %q, want %q", tt.argv, args.Subcommand, tt.wantSub)
			}
		})
	}
}

func TestParse_Flags(t *testing.T) {
	_, args, err := Parse([]string{
		"--url", "http://chat.local:8080",
		"--config=/tmp/c.toml",
		"--log-level", "DEBUG",
		"--theme", "light",
		"--no-history",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://chat.local:8080", args.URL)
	assert.Equal(t, "/tmp/c.toml", args.ConfigPath)
	assert.Equal(t, "DEBUG", args.LogLevel)
	assert.Equal(t, "light", args.Theme)
	assert.True(t, args.NoHistory)
	assert.False(t, args.Plain)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		argv []string
		want string
	}{
		{[]string{"--bogus"}, "unknown flag --bogus"},
		{[]string{"--url"}, "flag --url requires a value"},
		{[]string{"--theme", "neon"}, "invalid --theme"},
		{[]string{"--log-level", "loud"}, "invalid --log-level"},
		{[]string{"frobnicate"}, `unknown command "frobnicate"`},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, _, err := Parse(tt.argv)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, CmdHelp, cmd)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	err := ApplyOverrides(cfg, Args{URL: "https://example.com", LogLevel: "WARN", Theme: "Dark"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "dark", cfg.UI.Theme)

	err = ApplyOverrides(config.Default(), Args{URL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.base_url")
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "assistant config init")
	assert.Contains(t, buf.String(), Version)

	buf.Reset()
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "assistant version "+Version)
}

func TestCommandString(t *testing.T) {
	if CmdPlain.String() != "plain" {
		t.Errorf("CmdPlain.String() = %q, want %q", CmdPlain.String(), "plain")
	}
	if Command(99).String() != "unknown" {
		t.Errorf("Command(99).String() = %q, want %q", Command(99).String(), "unknown")
	}
}
