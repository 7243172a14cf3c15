// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope defines the unit of routing exchanged between
// clients of the bridge daemon, and the clock-driven construction
// rules that keep its server-assigned fields trustworthy.
package envelope

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dax8it/openclaw-bridge/lib/clock"
)

// Envelope is the unit of routing. Sender and timestamp are always
// server-assigned; they are never taken from client input.
type Envelope struct {
	ID            string          `json:"id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Timestamp     time.Time       `json:"ts"`
}

// Request is the client-supplied subset of an envelope, as carried in
// a `send` frame or an `/api/send` request body. ID, Type, and Payload
// are optional; From is never part of a Request — it is always the
// authenticated identity of the sender, supplied separately to Build.
type Request struct {
	To            string          `json:"to"`
	Type          string          `json:"type,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ID            string          `json:"id,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

// defaultType is used when a send request omits the type tag.
const defaultType = "message"

// Build constructs an Envelope from a client request and the
// server-known sender identity. It generates an ID when the request
// didn't supply one and assigns the timestamp from clk. The caller is
// responsible for validating `to` against the registry and allowlist
// before calling Build.
func Build(clk clock.Clock, from string, req Request) Envelope {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	typeTag := req.Type
	if typeTag == "" {
		typeTag = defaultType
	}
	payload := req.Payload
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            id,
		From:          from,
		To:            req.To,
		Type:          typeTag,
		Payload:       payload,
		CorrelationID: req.CorrelationID,
		Timestamp:     clk.Now().UTC(),
	}
}
