// Calmistry assistant - terminal chat client for the assistant service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calmistry/assistant-tui/internal/backend"
	"github.com/calmistry/assistant-tui/internal/cli"
	"github.com/calmistry/assistant-tui/internal/config"
	"github.com/calmistry/assistant-tui/internal/logging"
	"github.com/calmistry/assistant-tui/internal/ui/chat"
	"github.com/calmistry/assistant-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
		fmt.Fprintln(os.Stderr)
		cli.PrintUsage(os.Stderr)
		return 2
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return 0
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return 0
	case cli.CmdConfig:
		if err := cli.HandleConfig(os.Stdout, args); err != nil {
			fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
			return 1
		}
		return 0
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
	}
	cfg, configPath, err := cli.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
		return 1
	}
	config.SetGlobal(cfg)

	closeLog, err := logging.Init(logging.Options{
		Enabled: cfg.Log.Enabled && cfg.LogPath() != "",
		Level:   cfg.Log.Level,
		File:    cfg.LogPath(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
		return 1
	}
	defer closeLog()

	client := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:         cfg.Backend.BaseURL,
		HistoryPath:     cfg.Backend.HistoryPath,
		InferencePath:   cfg.Backend.InferencePath,
		RequestIDHeader: cfg.Backend.RequestIDHeader,
		ConnectTimeout:  cfg.Backend.ConnectTimeout(),
	})
	logging.L.Info("starting", "version", Version, "mode", cmd.String(), "base_url", cfg.Backend.BaseURL)

	if cmd == cli.CmdTUI && !cli.Interactive() {
		logging.L.Info("not a terminal, using plain mode")
		cmd = cli.CmdPlain
	}

	if cmd == cli.CmdPlain {
		return runPlain(cfg, client, args)
	}
	return runTUI(cfg, configPath, client, args)
}

// runTUI runs the full-screen chat view until the user quits.
func runTUI(cfg *config.Config, configPath string, client *backend.Client, args cli.Args) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []chat.Option
	if args.NoHistory {
		opts = append(opts, chat.WithoutHistory())
	}
	m := chat.New(styles.NewTheme(cfg.UI.Theme), client, cfg.UI, opts...)
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)
	m.Runner().SetSender(p)

	if configPath != "" {
		err := config.Watch(ctx, configPath, func(next *config.Config, err error) {
			if err != nil {
				return
			}
			if err := cli.ApplyOverrides(next, args); err != nil {
				logging.L.Warn("reloaded config rejected", "error", err)
				return
			}
			config.SetGlobal(next)
			p.Send(chat.ConfigReloadedMsg{Config: next})
		})
		if err != nil {
			logging.L.Warn("config watch unavailable", "path", configPath, "error", err)
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running assistant: %v\n", err)
		return 1
	}
	return 0
}

// runPlain runs the line-oriented REPL on stdin and stdout.
func runPlain(cfg *config.Config, client *backend.Client, args cli.Args) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	editor := cli.NewLineEditor()
	defer editor.Close()

	theme := styles.NewTheme(cfg.UI.Theme)
	width := cli.GetTerminalWidth()
	if cfg.UI.WordWrap > 0 && cfg.UI.WordWrap < width {
		width = cfg.UI.WordWrap
	}

	repl := cli.NewREPL(client, editor, os.Stdout, cli.REPLConfig{
		Markdown:    cli.IsStdoutTTY(),
		Style:       theme.GlamourStyle(),
		Width:       width,
		Interrupts:  interrupts,
		LoadHistory: !args.NoHistory,
	})
	if err := repl.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
		return 1
	}
	return 0
}
