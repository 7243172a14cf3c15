// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package queuestore implements the per-recipient bounded FIFO of
// envelopes held while a recipient has no live connection. The
// drop-oldest discipline is generalized from a single
// byte-size-bounded buffer to one bounded FIFO per recipient id.
package queuestore

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/dax8it/openclaw-bridge/internal/envelope"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
)

// compressThreshold is the serialized payload size above which the
// queue store transparently LZ4-compresses the payload while it sits
// in an offline recipient's queue, reducing the memory footprint of a
// backlog of large payloads. This is purely a
// storage detail: Drain always returns envelopes with their original,
// uncompressed payload.
const compressThreshold = 4096

// stored is one queued envelope. When the payload was large enough to
// compress, payload is cleared from env and kept separately.
type stored struct {
	env        envelope.Envelope
	compressed []byte // non-nil when env.Payload was compressed out
}

// Store is the singleton queue store, keyed by recipient id.
type Store struct {
	mu     sync.Mutex
	queues map[string][]stored
	limit  int
	ring   *eventring.Ring
}

// New creates a Store enforcing limit entries per recipient queue.
// ring receives a warn event whenever a queue overflow drops an
// envelope.
func New(limit int, ring *eventring.Ring) *Store {
	return &Store{
		queues: make(map[string][]stored),
		limit:  limit,
		ring:   ring,
	}
}

// Enqueue appends env to recipient's queue. If the queue's length
// would exceed the configured limit, the oldest entry is dropped
// first (drop-oldest discipline) and a warn event is emitted. Drops
// are silent to the producer: the router still reports a successful
// `sent` ack with queued:true.
func (s *Store) Enqueue(recipient string, env envelope.Envelope) {
	entry := stored{env: env}
	if len(env.Payload) > compressThreshold {
		if compressed, err := compressPayload(env.Payload); err == nil {
			entry.compressed = compressed
			entry.env.Payload = nil
		}
		// On compression failure, fall through and store the
		// envelope uncompressed rather than losing it.
	}

	s.mu.Lock()
	q := s.queues[recipient]
	q = append(q, entry)
	var droppedID string
	if len(q) > s.limit {
		droppedID = q[0].env.ID
		q[0] = stored{}
		q = q[1:]
	}
	s.queues[recipient] = q
	s.mu.Unlock()

	if droppedID != "" && s.ring != nil {
		s.ring.Warn("queue_overflow", "dropped oldest queued envelope", map[string]any{
			"recipient":  recipient,
			"droppedId":  droppedID,
			"queueLimit": s.limit,
		})
	}
}

// Drain removes and returns every envelope queued for recipient, in
// FIFO order, decompressing any payload that was stored compressed.
// Called once, on the recipient's successful auth.
func (s *Store) Drain(recipient string) []envelope.Envelope {
	s.mu.Lock()
	q := s.queues[recipient]
	delete(s.queues, recipient)
	s.mu.Unlock()

	out := make([]envelope.Envelope, 0, len(q))
	for _, entry := range q {
		env := entry.env
		if entry.compressed != nil {
			payload, err := decompressPayload(entry.compressed)
			if err == nil {
				env.Payload = payload
			} else {
				// Should not happen for data this store itself
				// compressed; fail safe to an explicit null payload
				// rather than propagating corrupt bytes.
				env.Payload = json.RawMessage("null")
			}
		}
		out = append(out, env)
	}
	return out
}

// Depth returns the current number of envelopes queued for recipient.
func (s *Store) Depth(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[recipient])
}

// Depths returns a snapshot of queue depth for every recipient with a
// non-empty queue, for the HTTP status endpoint.
func (s *Store) Depths() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.queues))
	for recipient, q := range s.queues {
		if len(q) > 0 {
			out[recipient] = len(q)
		}
	}
	return out
}

func compressPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressPayload(compressed []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(compressed))
	return io.ReadAll(r)
}
