// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry holds the immutable-after-load set of clients
// known to the bridge daemon: their identifiers, key hashes, and
// destination allowlists. It is owned by the config loader and shared
// read-only by every other component (connection manager, router,
// listener, HTTP control plane).
//
// There is no runtime reload in this specification. A future live
// reload should be modeled as an atomic swap of the *Registry pointer
// held by the daemon, never an in-place mutation of an existing
// Registry value.
package registry

// Wildcard is the allowlist token meaning "any registered client".
const Wildcard = "*"

// Client is a single registered principal. Immutable after
// construction.
type Client struct {
	ID            string
	KeyHash       string
	DestAllowlist []string
}

// CanSendTo reports whether this client's allowlist permits routing
// to recipientID. The wildcard token permits any registered
// destination, including the client's own ID.
func (c Client) CanSendTo(recipientID string) bool {
	for _, allowed := range c.DestAllowlist {
		if allowed == Wildcard || allowed == recipientID {
			return true
		}
	}
	return false
}

// Registry is the frozen set of registered clients, keyed by ID.
// Safe for unsynchronized concurrent reads: nothing mutates a Registry
// after New returns it.
type Registry struct {
	byID map[string]Client
}

// New builds a Registry from a slice of clients. The caller
// (internal/config) is responsible for validating identifier
// uniqueness before calling New.
func New(clients []Client) *Registry {
	byID := make(map[string]Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	return &Registry{byID: byID}
}

// Lookup returns the client descriptor for id and whether it exists.
func (r *Registry) Lookup(id string) (Client, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Exists reports whether id names a registered client.
func (r *Registry) Exists(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns every registered client. The returned slice is a fresh
// copy; mutating it does not affect the registry.
func (r *Registry) All() []Client {
	out := make([]Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	return len(r.byID)
}
