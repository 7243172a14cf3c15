// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// openclaw-bridged is the bridge daemon: it accepts concurrent stream
// connections from authenticated clients, routes envelopes between
// them, and exposes a token-gated HTTP control plane for operators.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dax8it/openclaw-bridge/internal/config"
	"github.com/dax8it/openclaw-bridge/internal/daemon"
	"github.com/dax8it/openclaw-bridge/lib/clock"

	"os/signal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool

	flagSet := pflag.NewFlagSet("openclaw-bridged", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the bridge config file (overrides OPENCLAW_BRIDGE_CONFIG)")
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
		fmt.Println("openclaw-bridged (development build)")
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := daemon.EnsureRuntimeDir(cfg.SocketPath); err != nil {
		return fmt.Errorf("preparing runtime directory: %w", err)
	}

	d, err := daemon.New(cfg, logger, clock.Real())
	if err != nil {
		return fmt.Errorf("initializing daemon: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `openclaw-bridged — local inter-process messaging bridge daemon.

Accepts stream connections on a Unix domain socket, enforces a
per-client access-control list, routes envelopes between connected
clients, and queues envelopes for disconnected recipients under a
bounded discipline. Serves a small token-gated HTTP API for operators.

Configuration is read from the file named by --config or the
OPENCLAW_BRIDGE_CONFIG environment variable. There is no fallback path.

Usage:
  openclaw-bridged [flags]

Flags:
%s`, flagSet.FlagUsages())
}
