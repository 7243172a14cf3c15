// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package authcheck provides constant-time comparison of a plaintext
// secret against a stored hex-encoded SHA-256 digest.
//
// Both client-key authentication on the stream socket and admin-token
// authorization on the HTTP control plane compare a caller-presented
// secret against a stored hash; both use this package so the same
// timing-safe discipline applies everywhere a secret is checked.
package authcheck

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashHex returns the lowercase hex-encoded SHA-256 digest of secret.
// This is the form stored in the config file for client key hashes and
// the admin token hash.
func HashHex(secret string) string {
	digest := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

// Verify reports whether the plaintext candidate hashes to storedHex.
// The comparison is constant-time in the digest bytes: storedHex is
// decoded, the candidate is hashed, lengths are checked first (hex of
// a fixed-size digest is always the same length, so this branch never
// leaks information about the secret itself), then
// crypto/subtle.ConstantTimeCompare merges the two digests byte by
// byte. An empty or malformed storedHex always fails closed.
func Verify(candidate, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil || len(stored) != sha256.Size {
		return false
	}
	digest := sha256.Sum256([]byte(candidate))
	if len(digest) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare(digest[:], stored) == 1
}
