// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon wires every bridge component together and supervises
// the process lifecycle: ordered startup, concurrent serving, and a
// bounded-grace-window shutdown.
//
// Startup loads config, builds state, starts each server in its own
// goroutine, blocks on signal.NotifyContext's derived context, then
// waits for both servers to stop for at most shutdownGrace.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dax8it/openclaw-bridge/internal/config"
	"github.com/dax8it/openclaw-bridge/internal/connmgr"
	"github.com/dax8it/openclaw-bridge/internal/controlapi"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
	"github.com/dax8it/openclaw-bridge/internal/listener"
	"github.com/dax8it/openclaw-bridge/internal/queuestore"
	"github.com/dax8it/openclaw-bridge/internal/router"
	"github.com/dax8it/openclaw-bridge/lib/clock"
)

// shutdownGrace bounds how long Run waits, after ctx is cancelled, for
// the stream listener and HTTP control plane to finish tearing down
// before returning regardless.
const shutdownGrace = 1500 * time.Millisecond

// eventRingCapacity is the in-memory event ring size. Kept as an
// internal constant rather than a config field since no external
// interface exposes it.
const eventRingCapacity = 2000

// Daemon owns every long-lived component of one bridge process.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	clk    clock.Clock

	ring     *eventring.Ring
	appender *eventring.LogAppender
	stream   *listener.Listener
	control  *controlapi.Server
}

// New performs the ordered startup sequence: build the event ring
// (and its durable log mirror), construct the routing components from
// the validated config, and wire the stream listener and HTTP control
// plane on top of them. It does not bind any socket yet; call Run to
// do that.
func New(cfg *config.Config, logger *slog.Logger, clk clock.Clock) (*Daemon, error) {
	appender, err := eventring.NewLogAppender(cfg.LogFilePath, cfg.LogRotateBytes, cfg.LogEncryptionRecipient)
	if err != nil {
		return nil, fmt.Errorf("opening event log %s: %w", cfg.LogFilePath, err)
	}

	ring := eventring.New(eventRingCapacity, clk, logger, appender)
	reg := cfg.Registry()
	conns := connmgr.New()
	queue := queuestore.New(cfg.QueueLimit, ring)
	route := router.New(conns, queue, ring)

	streamListener := listener.New(listener.Config{
		SocketPath:    cfg.SocketPath,
		SocketMode:    cfg.SocketFileMode(),
		Logger:        logger,
		Clock:         clk,
		MaxFrameBytes: cfg.MaxFrameBytes,
		Registry:      reg,
		Conns:         conns,
		Queue:         queue,
		Router:        route,
		Ring:          ring,
	})

	control := controlapi.New(controlapi.Config{
		Address:    fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort),
		SocketPath: cfg.SocketPath,
		Logger:     logger,
		Clock:      clk,
		Cfg:        cfg,
		Registry:   reg,
		Conns:      conns,
		Queue:      queue,
		Router:     route,
	})

	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		clk:      clk,
		ring:     ring,
		appender: appender,
		stream:   streamListener,
		control:  control,
	}, nil
}

// Run serves the stream listener and HTTP control plane concurrently
// until ctx is cancelled, then shuts down within shutdownGrace. It
// returns the first error encountered by either server, if any.
func (d *Daemon) Run(ctx context.Context) error {
	d.ring.Info("daemon_starting", "bridge daemon starting", map[string]any{
		"socketPath": d.cfg.SocketPath,
		"httpHost":   d.cfg.HTTPHost,
		"httpPort":   d.cfg.HTTPPort,
	})

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.stream.Serve(ctx); err != nil {
			errs <- fmt.Errorf("stream listener: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.control.Serve(ctx); err != nil {
			errs <- fmt.Errorf("control api: %w", err)
		}
	}()

	<-ctx.Done()
	d.ring.Warn("daemon_stopping", "termination signal received, shutting down", nil)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		d.logger.Warn("shutdown grace window elapsed, exiting without waiting further")
	}

	if d.appender != nil {
		if err := d.appender.Close(); err != nil {
			d.logger.Warn("closing event log", "error", err)
		}
	}

	close(errs)
	var firstErr error
	for err := range errs {
		d.logger.Error("server error during run", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// EnsureRuntimeDir creates the directory holding the Unix socket, if
// it does not already exist. Must run before the socket is bound.
func EnsureRuntimeDir(socketPath string) error {
	dir := filepath.Dir(socketPath)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0750)
}
