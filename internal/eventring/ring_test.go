// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventring

import (
	"testing"
	"time"

	"github.com/dax8it/openclaw-bridge/lib/clock"
)

func TestAppendAndSnapshotOrder(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := New(10, clk, nil, nil)

	r.Info("startup", "daemon starting", nil)
	r.Warn("queue_drop", "dropped oldest envelope", map[string]any{"recipient": "openclaw-server"})
	r.Error("bind_failed", "socket bind failed", nil)

	events := r.Snapshot()
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	if events[0].Type != "startup" || events[1].Type != "queue_drop" || events[2].Type != "bind_failed" {
		t.Errorf("events not in append order: %+v", events)
	}
	if events[0].Seq != 0 || events[1].Seq != 1 || events[2].Seq != 2 {
		t.Errorf("sequence numbers not monotonic: %d %d %d", events[0].Seq, events[1].Seq, events[2].Seq)
	}
}

func TestDropOldestOnOverflow(t *testing.T) {
	clk := clock.Fake(time.Now())
	r := New(3, clk, nil, nil)

	for i := 0; i < 5; i++ {
		r.Info("tick", "tick event", nil)
	}

	events := r.Snapshot()
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3 (ring max)", len(events))
	}
	// The oldest two (seq 0, 1) should have been dropped; the ring
	// retains the newest 3 (seq 2, 3, 4).
	if events[0].Seq != 2 || events[2].Seq != 4 {
		t.Errorf("unexpected retained sequence numbers: %d..%d", events[0].Seq, events[2].Seq)
	}
	if r.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", r.Dropped())
	}
}

type recordingAppender struct {
	events []Event
}

func (a *recordingAppender) Append(e Event) error {
	a.events = append(a.events, e)
	return nil
}

func TestAppenderMirroring(t *testing.T) {
	clk := clock.Fake(time.Now())
	appender := &recordingAppender{}
	r := New(10, clk, nil, appender)

	r.Info("startup", "daemon starting", nil)
	r.Warn("queue_drop", "dropped", nil)

	if len(appender.events) != 2 {
		t.Fatalf("appender recorded %d events, want 2", len(appender.events))
	}
}
