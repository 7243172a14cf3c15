// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statustui implements the operator status TUI: a bubbletea
// program that polls the bridge's HTTP control plane and renders
// client connection/queue state, with a send form and a help overlay.
// It is a pure HTTP client — it never touches the daemon's socket or
// internals, and its absence or failure has no effect on the daemon.
package statustui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dax8it/openclaw-bridge/lib/netutil"
)

// ClientStatus mirrors internal/controlapi's clientStatus wire shape.
type ClientStatus struct {
	ID        string   `json:"id"`
	CanSendTo []string `json:"canSendTo"`
}

// StatusSnapshot mirrors internal/controlapi's statusResponse wire
// shape returned by GET /api/status.
type StatusSnapshot struct {
	Ts                string         `json:"ts"`
	SocketPath        string         `json:"socketPath"`
	Active            map[string]int `json:"active"`
	Queued            map[string]int `json:"queued"`
	Clients           []ClientStatus `json:"clients"`
	ConfigFingerprint string         `json:"configFingerprint"`
}

// SendResult mirrors internal/controlapi's sendResponse wire shape
// returned by POST /api/send.
type SendResult struct {
	OK      bool            `json:"ok"`
	Envelope json.RawMessage `json:"envelope"`
	Error   string          `json:"error"`
}

// Client talks to one bridge's HTTP control plane.
type Client struct {
	baseURL    string
	adminToken string
	http       *http.Client
}

// NewClient builds a Client targeting the control plane at baseURL
// (e.g. "http://127.0.0.1:8642") authenticating with adminToken.
func NewClient(baseURL, adminToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		adminToken: adminToken,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Status fetches the current snapshot from GET /api/status.
func (c *Client) Status(ctx context.Context) (StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return StatusSnapshot{}, err
	}
	req.Header.Set("x-bridge-token", c.adminToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return StatusSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusSnapshot{}, fmt.Errorf("status request failed: %s: %s", resp.Status, netutil.ErrorBody(resp.Body))
	}

	var snapshot StatusSnapshot
	if err := netutil.DecodeResponse(resp.Body, &snapshot); err != nil {
		return StatusSnapshot{}, fmt.Errorf("decoding status response: %w", err)
	}
	return snapshot, nil
}

// SendRequest is the body posted to /api/send.
type SendRequest struct {
	AsClient string          `json:"asClient"`
	To       string          `json:"to"`
	Type     string          `json:"type,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Send posts an operator-initiated envelope via POST /api/send.
func (c *Client) Send(ctx context.Context, sendReq SendRequest) (SendResult, error) {
	body, err := json.Marshal(sendReq)
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/send", bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("x-bridge-token", c.adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()

	var result SendResult
	if err := netutil.DecodeResponse(resp.Body, &result); err != nil {
		return SendResult{}, fmt.Errorf("decoding send response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && result.Error == "" {
		result.Error = resp.Status
	}
	return result, nil
}
