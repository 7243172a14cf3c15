// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controlapi

import (
	"encoding/json"
	"net/http"

	"github.com/dax8it/openclaw-bridge/internal/envelope"
	"github.com/dax8it/openclaw-bridge/internal/router"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

// handleHealth answers GET /health with `{ok:true, ts}`. No auth
// required.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ts": s.clk.Now().UTC()})
}

// statusResponse is the shape of GET /api/status.
type statusResponse struct {
	Ts                interface{}    `json:"ts"`
	SocketPath        string         `json:"socketPath"`
	Active            map[string]int `json:"active"`
	Queued            map[string]int `json:"queued"`
	Clients           []clientStatus `json:"clients"`
	ConfigFingerprint string         `json:"configFingerprint"`
}

type clientStatus struct {
	ID        string   `json:"id"`
	CanSendTo []string `json:"canSendTo"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	all := s.reg.All()
	clients := make([]clientStatus, 0, len(all))
	for _, c := range all {
		clients = append(clients, clientStatus{ID: c.ID, CanSendTo: append([]string(nil), c.DestAllowlist...)})
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Ts:                s.clk.Now().UTC(),
		SocketPath:        s.socketPath,
		Active:            s.conns.Counts(),
		Queued:            s.queue.Depths(),
		Clients:           clients,
		ConfigFingerprint: s.fingerprint,
	})
}

// sendRequest is the body of POST /api/send.
type sendRequest struct {
	AsClient      string          `json:"asClient"`
	To            string          `json:"to"`
	Type          string          `json:"type,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ID            string          `json:"id,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

type sendResponse struct {
	OK       bool              `json:"ok"`
	Envelope envelope.Envelope `json:"envelope"`
	Routed   router.Result     `json:"routed"`
}

// handleSend answers POST /api/send: an operator-initiated send that
// does not require asClient to have a live connection.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.AsClient == "" || !s.reg.Exists(req.AsClient) {
		writeJSONError(w, http.StatusBadRequest, "unknown_sender")
		return
	}
	if req.To == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_to")
		return
	}
	if !s.reg.Exists(req.To) {
		writeJSONError(w, http.StatusBadRequest, "unknown_target")
		return
	}
	sender, _ := s.reg.Lookup(req.AsClient)
	if !sender.CanSendTo(req.To) {
		writeJSONError(w, http.StatusForbidden, "route_not_allowed")
		return
	}

	env := envelope.Build(s.clk, req.AsClient, envelope.Request{
		To:            req.To,
		Type:          req.Type,
		Payload:       req.Payload,
		ID:            req.ID,
		CorrelationID: req.CorrelationID,
	})
	result := s.route.Route(env)
	writeJSON(w, http.StatusOK, sendResponse{OK: true, Envelope: env, Routed: result})
}
