// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package queuestore

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dax8it/openclaw-bridge/internal/envelope"
	"github.com/dax8it/openclaw-bridge/internal/eventring"
	"github.com/dax8it/openclaw-bridge/lib/clock"
)

func newEnv(id string, payload string) envelope.Envelope {
	return envelope.Envelope{
		ID:        id,
		From:      "sender",
		To:        "recipient",
		Type:      "message",
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now().UTC(),
	}
}

func TestDrainReturnsFIFOOrder(t *testing.T) {
	s := New(10, nil)
	s.Enqueue("recipient", newEnv("1", `"a"`))
	s.Enqueue("recipient", newEnv("2", `"b"`))
	s.Enqueue("recipient", newEnv("3", `"c"`))

	out := s.Drain("recipient")
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	for i, id := range []string{"1", "2", "3"} {
		if out[i].ID != id {
			t.Errorf("out[%d].ID = %q, want %q", i, out[i].ID, id)
		}
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	s := New(10, nil)
	s.Enqueue("recipient", newEnv("1", `"a"`))
	s.Drain("recipient")

	if depth := s.Depth("recipient"); depth != 0 {
		t.Errorf("Depth after drain = %d, want 0", depth)
	}
	if out := s.Drain("recipient"); len(out) != 0 {
		t.Errorf("second Drain returned %d entries, want 0", len(out))
	}
}

func TestQueueOverflowDropsOldestRetainsNewest(t *testing.T) {
	ring := eventring.New(100, clock.Real(), nil, nil)
	s := New(3, ring)

	for i := 1; i <= 5; i++ {
		id := string(rune('0' + i))
		s.Enqueue("recipient", newEnv(id, `"x"`))
	}

	out := s.Drain("recipient")
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3 (queue limit)", len(out))
	}
	// Entries 1 and 2 dropped; entries 3, 4, 5 retained.
	want := []string{"3", "4", "5"}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("out[%d].ID = %q, want %q", i, out[i].ID, id)
		}
	}

	if ring.Len() == 0 {
		t.Error("expected a warn event emitted on queue overflow")
	}
}

func TestQueueDepthNeverExceedsLimit(t *testing.T) {
	s := New(3, nil)
	for i := 0; i < 20; i++ {
		s.Enqueue("recipient", newEnv("x", `1`))
		if depth := s.Depth("recipient"); depth > 3 {
			t.Fatalf("Depth = %d, exceeds limit 3 after %d enqueues", depth, i+1)
		}
	}
}

func TestLargePayloadRoundTripsThroughCompression(t *testing.T) {
	s := New(10, nil)
	large := `"` + strings.Repeat("a", compressThreshold*2) + `"`
	s.Enqueue("recipient", newEnv("big", large))

	out := s.Drain("recipient")
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if !bytes.Equal(out[0].Payload, []byte(large)) {
		t.Error("large payload did not round-trip byte-for-byte through compression")
	}
}

func TestSmallPayloadNotCompressed(t *testing.T) {
	s := New(10, nil)
	s.Enqueue("recipient", newEnv("small", `{"ok":true}`))
	if s.queues["recipient"][0].compressed != nil {
		t.Error("small payload was stored compressed")
	}
	out := s.Drain("recipient")
	if string(out[0].Payload) != `{"ok":true}` {
		t.Errorf("small payload changed: %s", out[0].Payload)
	}
}

func TestDepthsSnapshot(t *testing.T) {
	s := New(10, nil)
	s.Enqueue("a", newEnv("1", `1`))
	s.Enqueue("a", newEnv("2", `1`))
	s.Enqueue("b", newEnv("3", `1`))

	depths := s.Depths()
	if depths["a"] != 2 || depths["b"] != 1 {
		t.Errorf("Depths() = %+v, want a:2 b:1", depths)
	}
}
