// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controlapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dax8it/openclaw-bridge/internal/authcheck"
	"github.com/dax8it/openclaw-bridge/internal/config"
	"github.com/dax8it/openclaw-bridge/internal/connmgr"
	"github.com/dax8it/openclaw-bridge/internal/envelope"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
	"github.com/dax8it/openclaw-bridge/internal/queuestore"
	"github.com/dax8it/openclaw-bridge/internal/registry"
	"github.com/dax8it/openclaw-bridge/internal/router"
	"github.com/dax8it/openclaw-bridge/lib/clock"
)

const testAdminToken = "operator-secret"

type fakeConn struct {
	delivered []envelope.Envelope
}

func (f *fakeConn) Deliver(env envelope.Envelope) bool {
	f.delivered = append(f.delivered, env)
	return true
}

func newTestServer(t *testing.T) (*Server, *connmgr.Manager, *queuestore.Store) {
	t.Helper()
	reg := registry.New([]registry.Client{
		{ID: "agent-client", KeyHash: authcheck.HashHex("k1"), DestAllowlist: []string{"openclaw-server"}},
		{ID: "openclaw-server", KeyHash: authcheck.HashHex("k2"), DestAllowlist: []string{"*"}},
	})
	conns := connmgr.New()
	ring := eventring.New(100, clock.Real(), slog.Default(), nil)
	queue := queuestore.New(10, ring)
	rt := router.New(conns, queue, ring)

	cfg := config.Default()
	cfg.Clients = []config.ClientConfig{
		{ID: "agent-client", KeyHash: authcheck.HashHex("k1"), DestAllowlist: []string{"openclaw-server"}},
		{ID: "openclaw-server", KeyHash: authcheck.HashHex("k2"), DestAllowlist: []string{"*"}},
	}
	cfg.AdminTokenHash = authcheck.HashHex(testAdminToken)

	s := New(Config{
		Address:    "127.0.0.1:0",
		SocketPath: "/tmp/openclaw-bridge.sock",
		Logger:     slog.Default(),
		Clock:      clock.Real(),
		Cfg:        cfg,
		Registry:   reg,
		Conns:      conns,
		Queue:      queue,
		Router:     rt,
	})
	return s, conns, queue
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["ok"] != true {
		t.Errorf("body = %+v, want ok:true", body)
	}
}

func TestStatusRejectsMissingToken(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestStatusWithValidTokenReturnsSnapshot(t *testing.T) {
	s, conns, queue := newTestServer(t)
	conns.Register("openclaw-server", &fakeConn{})
	queue.Enqueue("agent-client", envelope.Envelope{ID: "q1", To: "agent-client"})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(adminTokenHeader, testAdminToken)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Active["openclaw-server"] != 1 {
		t.Errorf("active = %+v, want openclaw-server:1", resp.Active)
	}
	if resp.Queued["agent-client"] != 1 {
		t.Errorf("queued = %+v, want agent-client:1", resp.Queued)
	}
	if len(resp.Clients) != 2 {
		t.Errorf("clients = %+v, want 2 entries", resp.Clients)
	}
	if resp.ConfigFingerprint == "" {
		t.Error("expected a non-empty configFingerprint")
	}
}

func TestSendValidatesSenderAndTarget(t *testing.T) {
	s, _, _ := newTestServer(t)

	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown sender", `{"asClient":"nobody","to":"agent-client"}`, "unknown_sender"},
		{"missing to", `{"asClient":"agent-client"}`, "missing_to"},
		{"unknown target", `{"asClient":"agent-client","to":"nobody"}`, "unknown_target"},
		{"not allowed", `{"asClient":"agent-client","to":"agent-client"}`, "route_not_allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/send", bytes.NewBufferString(tc.body))
			req.Header.Set(adminTokenHeader, testAdminToken)
			rec := httptest.NewRecorder()
			s.routes().ServeHTTP(rec, req)

			var body map[string]any
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["error"] != tc.wantErr {
				t.Errorf("error = %v, want %v (status=%d)", body["error"], tc.wantErr, rec.Code)
			}
		})
	}
}

func TestSendSucceedsWithoutLiveConnection(t *testing.T) {
	s, _, _ := newTestServer(t)
	body := `{"asClient":"openclaw-server","to":"agent-client","type":"response","payload":{"ok":true}}`
	req := httptest.NewRequest(http.MethodPost, "/api/send", bytes.NewBufferString(body))
	req.Header.Set(adminTokenHeader, testAdminToken)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var resp sendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.Envelope.From != "openclaw-server" || resp.Envelope.To != "agent-client" {
		t.Errorf("resp = %+v", resp)
	}
	if !resp.Routed.Queued {
		t.Errorf("routed = %+v, want queued:true (no live connection)", resp.Routed)
	}
}
