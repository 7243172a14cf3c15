// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package connmgr

import (
	"testing"

	"github.com/dax8it/openclaw-bridge/internal/envelope"
)

type fakeConn struct {
	delivered []envelope.Envelope
	full      bool
}

func (f *fakeConn) Deliver(env envelope.Envelope) bool {
	if f.full {
		return false
	}
	f.delivered = append(f.delivered, env)
	return true
}

func TestRegisterConnectionsForCounts(t *testing.T) {
	m := New()
	connA1 := &fakeConn{}
	connA2 := &fakeConn{}
	connB1 := &fakeConn{}

	m.Register("client-a", connA1)
	m.Register("client-a", connA2)
	m.Register("client-b", connB1)

	conns := m.ConnectionsFor("client-a")
	if len(conns) != 2 {
		t.Fatalf("ConnectionsFor(client-a) = %d connections, want 2", len(conns))
	}

	counts := m.Counts()
	if counts["client-a"] != 2 || counts["client-b"] != 1 {
		t.Errorf("Counts() = %+v, want client-a:2 client-b:1", counts)
	}
}

func TestUnregisterPrunesEmptySet(t *testing.T) {
	m := New()
	conn := &fakeConn{}
	m.Register("client-a", conn)
	m.Unregister("client-a", conn)

	if conns := m.ConnectionsFor("client-a"); len(conns) != 0 {
		t.Errorf("ConnectionsFor after unregister = %d, want 0", len(conns))
	}
	counts := m.Counts()
	if _, exists := counts["client-a"]; exists {
		t.Error("empty client set was not pruned from Counts()")
	}
}

func TestConnectionsForUnknownClient(t *testing.T) {
	m := New()
	if conns := m.ConnectionsFor("nobody"); conns != nil {
		t.Errorf("ConnectionsFor(unknown) = %v, want nil", conns)
	}
}

func TestMultipleConnectionsSameClientIndependentDrop(t *testing.T) {
	m := New()
	slow := &fakeConn{full: true}
	healthy := &fakeConn{}
	m.Register("client-a", slow)
	m.Register("client-a", healthy)

	env := envelope.Envelope{ID: "e1", From: "x", To: "client-a"}
	delivered := 0
	for _, c := range m.ConnectionsFor("client-a") {
		if c.Deliver(env) {
			delivered++
		}
	}
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1 (one connection full, one healthy)", delivered)
	}
}
