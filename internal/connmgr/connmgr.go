// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package connmgr tracks live authenticated connections grouped by
// client id. It holds weak references only: a connection's lifetime
// is owned by the stream listener, not by the Manager. A single mutex
// guards the whole map; fine-grained per-client locking is not
// required given the expected fanout.
package connmgr

import (
	"sync"

	"github.com/dax8it/openclaw-bridge/internal/envelope"
)

// Connection is the narrow interface the connection manager needs
// from a live stream connection: the ability to hand it an envelope
// for delivery without blocking the caller. A connection identity
// compares by pointer, so the same underlying connection always maps
// to the same set entry.
type Connection interface {
	// Deliver attempts to enqueue env for delivery to this connection
	// without blocking. It returns false if the connection's own
	// outbound queue is full, in which case the caller (the router)
	// should treat this one delivery as dropped without affecting any
	// other recipient connection.
	Deliver(env envelope.Envelope) bool
}

// Manager tracks connections grouped by authenticated client id.
// Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	byClient map[string]map[Connection]struct{}
}

// New creates an empty connection manager.
func New() *Manager {
	return &Manager{byClient: make(map[string]map[Connection]struct{})}
}

// Register adds conn to the set of live connections for clientID.
func (m *Manager) Register(clientID string, conn Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byClient[clientID]
	if !ok {
		set = make(map[Connection]struct{})
		m.byClient[clientID] = set
	}
	set[conn] = struct{}{}
}

// Unregister removes conn from clientID's set, pruning the set
// entirely once it is empty.
func (m *Manager) Unregister(clientID string, conn Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byClient[clientID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(m.byClient, clientID)
	}
}

// ConnectionsFor returns a snapshot slice of the live connections
// currently registered for clientID. The snapshot is safe to range
// over after this call returns, even if connections register or
// unregister concurrently.
func (m *Manager) ConnectionsFor(clientID string) []Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byClient[clientID]
	if !ok {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Counts returns a snapshot map of client id to live connection
// count, for the HTTP status endpoint.
func (m *Manager) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.byClient))
	for clientID, set := range m.byClient {
		out[clientID] = len(set)
	}
	return out
}
