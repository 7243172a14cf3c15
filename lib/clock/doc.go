// Copyright 2026 The OpenClaw Bridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.After, time.NewTicker, time.AfterFunc, or time.Sleep
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// # Wiring Pattern
//
// The bridge daemon carries a single clock.Clock from cmd/openclaw-bridged
// down through daemon.New into every component that stamps a timestamp or
// schedules a delay: envelope.Build (the "ts" field), eventring.Ring,
// internal/listener's per-connection auth and ping handling, and
// internal/controlapi's /health and /api/status handlers.
// eventring.LogAppender does not take a Clock; it names rotated
// segments from time.Now.
// Add a Clock field to a struct that uses time the same way:
//
//	type Store struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	s := &Store{clock: clock.Real()}
//
// In tests (see internal/eventring/ring_test.go for a worked example
// against one of this daemon's own components):
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := &Store{clock: c}
//	// ... start goroutines ...
//	c.WaitForTimers(1) // wait for goroutine to register a timer
//	c.Advance(5 * time.Second) // fire the timer deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls Sleep, After, NewTicker, or AfterFunc on a
// FakeClock, it registers a pending timer. Use WaitForTimers to block
// until a specific number of timers are registered before calling
// Advance. This eliminates the race between timer registration and
// time advancement that plagues tests using time.Sleep for
// synchronization.
package clock
