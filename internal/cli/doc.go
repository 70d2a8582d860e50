// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-graphical front
// ends of the assistant client.
//
// # Commands
//
//   - (default): full-screen chat view
//   - --plain: line-oriented REPL over the same session state
//   - config show|init|path: configuration management
//   - version, help
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.PrintUsage(os.Stderr)
//	    os.Exit(2)
//	}
//	cfg, path, err := cli.LoadConfig(args)
//
// The plain REPL streams replies as they arrive, or renders them as
// markdown once complete when stdout is a terminal. Ctrl+C stops a reply
// in progress and asks the service to cancel it.
package cli
