// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package router implements the routing algorithm: given a validated
// envelope, fan it out to every live connection of the recipient, or
// queue it if the recipient is offline.
//
// Backpressure (see DESIGN.md for the policy decision): the router
// never writes to a connection's socket directly and never blocks on
// one slow recipient. It hands each
// envelope to connmgr.Connection.Deliver, which enqueues onto that
// connection's own bounded outbound queue without blocking; a full
// outbound queue drops only that one delivery and is logged, exactly
// like the recipient-offline queue overflow path, and does not affect
// delivery to any other connection.
package router

import (
	"github.com/dax8it/openclaw-bridge/internal/connmgr"
	"github.com/dax8it/openclaw-bridge/internal/envelope"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
	"github.com/dax8it/openclaw-bridge/internal/queuestore"
)

// Router wires the connection manager and queue store together.
type Router struct {
	conns *connmgr.Manager
	queue *queuestore.Store
	ring  *eventring.Ring
}

// New creates a Router over the given connection manager and queue
// store. ring receives info/warn events for fanout and queueing.
func New(conns *connmgr.Manager, queue *queuestore.Store, ring *eventring.Ring) *Router {
	return &Router{conns: conns, queue: queue, ring: ring}
}

// Result reports the outcome of routing one envelope, mirroring the
// `sent` frame and /api/send response fields.
type Result struct {
	DeliveredTo int  `json:"deliveredTo"`
	Queued      bool `json:"queued"`
}

// Route delivers env to every live connection of env.To, or enqueues
// it if none are currently connected. It never returns an error:
// individual delivery write failures are logged and do not abort the
// fanout, and queueing never fails (it always succeeds, possibly by
// dropping the oldest queued entry for that recipient).
func (r *Router) Route(env envelope.Envelope) Result {
	conns := r.conns.ConnectionsFor(env.To)
	if len(conns) > 0 {
		for _, c := range conns {
			if !c.Deliver(env) {
				r.ring.Warn("delivery_dropped", "recipient connection outbound queue full", map[string]any{
					"recipient":    env.To,
					"envelopeId":   env.ID,
					"fromClientId": env.From,
				})
			}
		}
		r.ring.Info("routed", "delivered envelope to live connections", map[string]any{
			"recipient":    env.To,
			"envelopeId":   env.ID,
			"fromClientId": env.From,
			"deliveredTo":  len(conns),
		})
		return Result{DeliveredTo: len(conns), Queued: false}
	}

	r.queue.Enqueue(env.To, env)
	r.ring.Warn("routed_queued", "recipient offline, envelope queued", map[string]any{
		"recipient":    env.To,
		"envelopeId":   env.ID,
		"fromClientId": env.From,
	})
	return Result{DeliveredTo: 0, Queued: true}
}
