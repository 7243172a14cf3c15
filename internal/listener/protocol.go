// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package listener implements the local stream socket listener and
// per-connection protocol state machine: newline-delimited JSON
// framing, an unauth -> authed state machine modeled as a tagged
// variant rather than a boolean flag, and action dispatch by name.
package listener

import (
	"encoding/json"
	"time"

	"github.com/dax8it/openclaw-bridge/internal/envelope"
)

// Inbound actions, the frame catalog accepted on the wire.
const (
	actionAuth   = "auth"
	actionPing   = "ping"
	actionWhoami = "whoami"
	actionSend   = "send"
)

// Outbound actions.
const (
	actionAuthOk     = "auth_ok"
	actionAuthFailed = "auth_failed"
	actionPong       = "pong"
	actionSent       = "sent"
	actionMessage    = "message"
	actionError      = "error"
)

// Error codes carried in error frames.
const (
	errAuthRequired   = "auth_required"
	errMissingTo      = "missing_to"
	errUnknownTarget  = "unknown_target"
	errRouteNotAllow  = "route_not_allowed"
	errUnknownAction  = "unknown_action"
	errInvalidJSON    = "invalid_json"
	errMessageTooBig  = "message_too_large"
	errBufferExceeded = "buffer_exceeded"
)

// inboundFrame is the union of every field any inbound action may
// carry. Unused fields for a given action are left at their zero
// value.
type inboundFrame struct {
	Action        string          `json:"action"`
	ClientID      string          `json:"clientId,omitempty"`
	APIKey        string          `json:"apiKey,omitempty"`
	To            string          `json:"to,omitempty"`
	Type          string          `json:"type,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ID            string          `json:"id,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

// Outbound frame shapes. Each is marshaled independently; Action is
// always present so the client can dispatch on it.

type authOkFrame struct {
	Action   string    `json:"action"`
	ClientID string    `json:"clientId"`
	Queued   int       `json:"queued"`
	Ts       time.Time `json:"ts"`
}

type authFailedFrame struct {
	Action string `json:"action"`
}

type pongFrame struct {
	Action string    `json:"action"`
	Ts     time.Time `json:"ts"`
}

type whoamiFrame struct {
	Action    string    `json:"action"`
	ClientID  string    `json:"clientId"`
	CanSendTo []string  `json:"canSendTo"`
	Ts        time.Time `json:"ts"`
}

type sentFrame struct {
	Action      string    `json:"action"`
	ID          string    `json:"id"`
	DeliveredTo int       `json:"deliveredTo"`
	Queued      bool      `json:"queued"`
	Ts          time.Time `json:"ts"`
}

type messageFrame struct {
	Action   string            `json:"action"`
	Envelope envelope.Envelope `json:"envelope"`
}

type errorFrame struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}
