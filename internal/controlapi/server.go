// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package controlapi serves the bridge daemon's read/command HTTP
// interface for operators: an unauthenticated health check, and a
// token-gated status snapshot and operator-initiated send under
// /api/.
//
// Server's listener lifecycle (bind-then-signal-ready, graceful
// shutdown with a bounded timeout) is grounded on
// lib/service/http.go's HTTPServer, adapted from a generic
// http.Handler wrapper into the bridge's own routes and token-gate
// middleware rather than imported wholesale.
package controlapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dax8it/openclaw-bridge/internal/authcheck"
	"github.com/dax8it/openclaw-bridge/internal/config"
	"github.com/dax8it/openclaw-bridge/internal/connmgr"
	"github.com/dax8it/openclaw-bridge/internal/queuestore"
	"github.com/dax8it/openclaw-bridge/internal/registry"
	"github.com/dax8it/openclaw-bridge/internal/router"
	"github.com/dax8it/openclaw-bridge/lib/clock"
)

// adminTokenHeader is the header an operator presents on every /api/
// request.
const adminTokenHeader = "x-bridge-token"

// shutdownTimeout bounds how long Serve waits for in-flight requests
// to complete after its context is cancelled.
const shutdownTimeout = 10 * time.Second

// Server serves the HTTP control plane.
type Server struct {
	address        string
	socketPath     string
	adminTokenHash string
	fingerprint    string
	logger         *slog.Logger
	clk            clock.Clock

	reg   *registry.Registry
	conns *connmgr.Manager
	queue *queuestore.Store
	route *router.Router

	ready chan struct{}
	addr  net.Addr
}

// Config bundles the dependencies a Server needs.
type Config struct {
	Address    string
	SocketPath string
	Logger     *slog.Logger
	Clock      clock.Clock
	Cfg        *config.Config
	Registry   *registry.Registry
	Conns      *connmgr.Manager
	Queue      *queuestore.Store
	Router     *router.Router
}

// New constructs a Server. Call Serve to start accepting.
func New(cfg Config) *Server {
	return &Server{
		address:        cfg.Address,
		socketPath:     cfg.SocketPath,
		adminTokenHash: cfg.Cfg.AdminTokenHash,
		fingerprint:    cfg.Cfg.Fingerprint(),
		logger:         cfg.Logger,
		clk:            cfg.Clock,
		reg:            cfg.Registry,
		conns:          cfg.Conns,
		queue:          cfg.Queue,
		route:          cfg.Router,
		ready:          make(chan struct{}),
	}
}

// Ready returns a channel closed once the server is bound and
// accepting connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the resolved listen address. Only valid after Ready()
// closes.
func (s *Server) Addr() net.Addr { return s.addr }

// Serve binds the configured TCP address and serves until ctx is
// cancelled, then shuts down gracefully within shutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = ln.Addr()
	close(s.ready)

	httpServer := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("control api listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		err := httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("control api shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control api shutdown: %w", err)
	}
	return nil
}

// routes builds the handler mux: /health is unauthenticated; every
// /api/ path requires a valid x-bridge-token header.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /api/status", s.requireAdminToken(http.HandlerFunc(s.handleStatus)))
	mux.Handle("POST /api/send", s.requireAdminToken(http.HandlerFunc(s.handleSend)))
	return mux
}

// requireAdminToken gates a handler behind the x-bridge-token header.
// If no admin hash is configured, every call is rejected as
// unauthorized: an empty adminTokenHash can never match any candidate
// since authcheck.Verify fails closed on an invalid stored hash.
func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(adminTokenHeader)
		if !authcheck.Verify(token, s.adminTokenHash) {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
