// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// openclaw-bridge-status is the operator status TUI: a pure HTTP
// client against the bridge's control plane. It has no access to the
// daemon's socket or internals; its absence or failure never affects
// the daemon.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/dax8it/openclaw-bridge/internal/statustui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var address, token string
	var showVersion bool

	flagSet := pflag.NewFlagSet("openclaw-bridge-status", pflag.ContinueOnError)
	flagSet.StringVar(&address, "address", "http://127.0.0.1:8642", "base URL of the bridge control plane")
	flagSet.StringVar(&token, "token", os.Getenv("OPENCLAW_BRIDGE_ADMIN_TOKEN"), "admin token (defaults to OPENCLAW_BRIDGE_ADMIN_TOKEN)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Println("openclaw-bridge-status (development build)")
		return nil
	}
	if token == "" {
		return fmt.Errorf("an admin token is required: pass --token or set OPENCLAW_BRIDGE_ADMIN_TOKEN")
	}

	client := statustui.NewClient(address, token)
	program := tea.NewProgram(statustui.NewModel(client), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `openclaw-bridge-status — operator TUI for the bridge control plane.

Polls GET /api/status on an interval and renders connected clients,
their live connection and queue depth counts, and their allowlists.
Press s to open a send form that posts to /api/send, ? for help.

Usage:
  openclaw-bridge-status [flags]

Flags:
%s`, flagSet.FlagUsages())
}
