// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dax8it/openclaw-bridge/internal/authcheck"
)

// jsonUnmarshalStrict decodes data into v, rejecting unknown fields so
// a typo in the config file (e.g. "scoketPath") fails at load time
// instead of silently being ignored.
func jsonUnmarshalStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// hashAdminToken hashes a plaintext admin token override from the
// environment into the same hex-SHA-256 form stored in the config
// file.
func hashAdminToken(plaintext string) string {
	return authcheck.HashHex(plaintext)
}

// parseSocketMode parses an octal mode string (e.g. "0660") into an
// os.FileMode.
func parseSocketMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q: %w", s, err)
	}
	return os.FileMode(v), nil
}
