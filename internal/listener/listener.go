// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/dax8it/openclaw-bridge/internal/connmgr"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
	"github.com/dax8it/openclaw-bridge/internal/queuestore"
	"github.com/dax8it/openclaw-bridge/internal/registry"
	"github.com/dax8it/openclaw-bridge/internal/router"
	"github.com/dax8it/openclaw-bridge/lib/clock"
)

// Listener serves the bridge's newline-delimited JSON protocol on a
// Unix domain socket. Grounded on lib/service.SocketServer's
// accept-loop and graceful-shutdown shape, generalized from a
// one-request-per-connection CBOR protocol to a long-lived,
// multi-frame, stateful connection.
type Listener struct {
	socketPath string
	socketMode os.FileMode
	logger     *slog.Logger
	clk        clock.Clock

	maxFrameBytes int
	reg           *registry.Registry
	conns         *connmgr.Manager
	queue         *queuestore.Store
	route         *router.Router
	ring          *eventring.Ring

	active sync.WaitGroup
}

// Config bundles the dependencies a Listener needs, grouped for a
// clean constructor call from the daemon's lifecycle supervisor.
type Config struct {
	SocketPath    string
	SocketMode    os.FileMode
	Logger        *slog.Logger
	Clock         clock.Clock
	MaxFrameBytes int
	Registry      *registry.Registry
	Conns         *connmgr.Manager
	Queue         *queuestore.Store
	Router        *router.Router
	Ring          *eventring.Ring
}

// New constructs a Listener. Call Serve to start accepting.
func New(cfg Config) *Listener {
	return &Listener{
		socketPath:    cfg.SocketPath,
		socketMode:    cfg.SocketMode,
		logger:        cfg.Logger,
		clk:           cfg.Clock,
		maxFrameBytes: cfg.MaxFrameBytes,
		reg:           cfg.Registry,
		conns:         cfg.Conns,
		queue:         cfg.Queue,
		route:         cfg.Router,
		ring:          cfg.Ring,
	}
}

// Serve removes any stale socket file at the configured path, binds a
// new Unix listener, sets its file mode, and accepts connections until
// ctx is cancelled. It returns once every in-flight connection has
// finished its teardown.
func (l *Listener) Serve(ctx context.Context) error {
	if err := os.Remove(l.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", l.socketPath, err)
	}

	ln, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.socketPath, err)
	}
	defer func() {
		ln.Close()
		os.Remove(l.socketPath)
	}()

	if err := os.Chmod(l.socketPath, l.socketMode); err != nil {
		return fmt.Errorf("setting socket mode on %s: %w", l.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	l.logger.Info("stream listener serving", "path", l.socketPath, "mode", l.socketMode)

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			l.logger.Error("accept failed", "error", err)
			continue
		}

		c := newConn(nc, l.logger, l.clk, l.maxFrameBytes, l.reg, l.conns, l.queue, l.route, l.ring)
		l.active.Add(1)
		go func() {
			defer l.active.Done()
			c.serve()
		}()
	}

	l.active.Wait()
	return nil
}
