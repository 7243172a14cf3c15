// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventring implements the daemon's runtime event ring: a
// bounded, append-only, in-memory record of structured events
// (connection lifecycle, routing decisions, queue drops, startup and
// shutdown) consumed by the HTTP control plane. It is not part of the
// routing path.
//
// Ring holds the in-memory bounded buffer: mutex-protected,
// drop-oldest on overflow. An optional Appender mirrors every event to
// a log file on disk (see logfile.go).
package eventring

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dax8it/openclaw-bridge/lib/clock"
)

// Level classifies an event's severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one entry in the ring.
type Event struct {
	Seq     uint64         `json:"seq"`
	Time    time.Time      `json:"ts"`
	Level   Level          `json:"level"`
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Appender mirrors ring events to a durable sink (the log file).
// Append must not block the ring for long; implementations that write
// to disk should do so without holding the ring's lock (see how Ring
// calls it below — outside ring.mu).
type Appender interface {
	Append(Event) error
}

// Ring is a bounded, mutex-protected, drop-oldest buffer of
// structured events plus an optional durable mirror.
type Ring struct {
	mu       sync.Mutex
	events   []Event
	max      int
	nextSeq  uint64
	dropped  uint64
	clk      clock.Clock
	logger   *slog.Logger
	appender Appender
}

// New creates a Ring holding at most max events. clk supplies
// timestamps (clock.Real() in production, a fake clock in tests).
// appender may be nil, in which case events are kept in memory only.
func New(max int, clk clock.Clock, logger *slog.Logger, appender Appender) *Ring {
	if max <= 0 {
		max = 1000
	}
	return &Ring{
		max:      max,
		clk:      clk,
		logger:   logger,
		appender: appender,
	}
}

// Append records a new event, evicting the oldest event if the ring
// is at capacity, and returns the recorded Event (with its assigned
// Seq and Time).
func (r *Ring) Append(level Level, typ, message string, details map[string]any) Event {
	event := Event{
		Time:    r.clk.Now().UTC(),
		Level:   level,
		Type:    typ,
		Message: message,
		Details: details,
	}

	r.mu.Lock()
	event.Seq = r.nextSeq
	r.nextSeq++
	r.events = append(r.events, event)
	if len(r.events) > r.max {
		r.events[0] = Event{}
		r.events = r.events[1:]
		r.dropped++
	}
	r.mu.Unlock()

	if r.appender != nil {
		if err := r.appender.Append(event); err != nil && r.logger != nil {
			r.logger.Error("event log mirror write failed", "error", err)
		}
	}
	return event
}

// Info, Warn, and Error are convenience wrappers around Append.
func (r *Ring) Info(typ, message string, details map[string]any) Event {
	return r.Append(LevelInfo, typ, message, details)
}

func (r *Ring) Warn(typ, message string, details map[string]any) Event {
	return r.Append(LevelWarn, typ, message, details)
}

func (r *Ring) Error(typ, message string, details map[string]any) Event {
	return r.Append(LevelError, typ, message, details)
}

// Snapshot returns a copy of the currently retained events, oldest
// first. Mutating the returned slice does not affect the ring.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Dropped returns the number of events evicted from memory due to
// ring overflow since creation. Nothing is ever dropped from the
// durable mirror on this account — only from the in-memory ring.
func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Len returns the number of events currently retained in memory.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
