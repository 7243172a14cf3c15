// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/hex"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// fingerprintDomainKey is a fixed 32-byte BLAKE3 key providing domain
// separation for the registry fingerprint: changing this key
// invalidates every previously surfaced fingerprint.
var fingerprintDomainKey = [32]byte{
	'o', 'p', 'e', 'n', 'c', 'l', 'a', 'w', '.', 'b', 'r', 'i', 'd', 'g', 'e', '.',
	'r', 'e', 'g', 'i', 's', 't', 'r', 'y', '.', 'f', 'p', 0, 0, 0, 0, 0,
}

// Fingerprint returns a hex-encoded, keyed BLAKE3-256 digest of the
// normalized client registry: each client's id, key hash, and sorted
// allowlist, joined in a fixed order, sorted by client id. Two config
// files describing the same registry (whatever the field order or
// whitespace in the source file) produce the same fingerprint; any
// change to a client's id, key hash, or allowlist changes it. Exposed
// via GET /api/status so operators can detect that a running daemon's
// registry has drifted from the config file on disk.
func (c *Config) Fingerprint() string {
	clients := append([]ClientConfig(nil), c.Clients...)
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })

	var b strings.Builder
	for _, cc := range clients {
		allow := append([]string(nil), cc.DestAllowlist...)
		sort.Strings(allow)
		b.WriteString(cc.ID)
		b.WriteByte('\x00')
		b.WriteString(cc.KeyHash)
		b.WriteByte('\x00')
		b.WriteString(strings.Join(allow, ","))
		b.WriteByte('\x1e')
	}

	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		// NewKeyed only fails on a wrong-size key, which
		// fingerprintDomainKey's array type makes impossible.
		panic(err)
	}
	_, _ = hasher.Write([]byte(b.String()))
	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest)
}

// SocketFileMode returns the parsed octal socket mode. Callers must
// have already run Validate, which rejects an unparseable SocketMode.
func (c *Config) SocketFileMode() os.FileMode {
	mode, _ := parseSocketMode(c.SocketMode)
	return mode
}
