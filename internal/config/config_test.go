// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalValidConfig = `{
	"clients": [
		{"id": "agent-client", "keyHash": "abc123", "destAllowlist": ["openclaw-server"]},
		{"id": "openclaw-server", "keyHash": "def456", "destAllowlist": ["*"]}
	]
}`

func TestLoadFileDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.SocketPath != DefaultSocketPath {
		t.Errorf("SocketPath = %q, want default %q", cfg.SocketPath, DefaultSocketPath)
	}
	if cfg.MaxFrameBytes != DefaultMaxFrameBytes {
		t.Errorf("MaxFrameBytes = %d, want %d", cfg.MaxFrameBytes, DefaultMaxFrameBytes)
	}
	if len(cfg.Clients) != 2 {
		t.Fatalf("len(Clients) = %d, want 2", len(cfg.Clients))
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/path/config.json"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{not json`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoadFileJSONCComments(t *testing.T) {
	dir := t.TempDir()
	contents := `{
		// clients allowed to use the bridge
		"clients": [
			{"id": "a", "keyHash": "x", "destAllowlist": []} /* no destinations yet */
		]
	}`
	path := writeConfig(t, dir, contents)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile with jsonc comments: %v", err)
	}
	if len(cfg.Clients) != 1 || cfg.Clients[0].ID != "a" {
		t.Fatalf("unexpected clients: %+v", cfg.Clients)
	}
}

func TestValidateEmptyClients(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"clients": []}`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error for empty clients, got nil")
	}
}

func TestValidateDuplicateClientID(t *testing.T) {
	dir := t.TempDir()
	contents := `{"clients": [
		{"id": "a", "keyHash": "x", "destAllowlist": []},
		{"id": "a", "keyHash": "y", "destAllowlist": []}
	]}`
	path := writeConfig(t, dir, contents)
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidateMissingKeyHash(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{"clients": [{"id": "a", "destAllowlist": []}]}`)
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "keyHash") {
		t.Fatalf("expected keyHash error, got %v", err)
	}
}

func TestSocketPathEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)

	t.Setenv(socketPathEnv, "/run/custom/override.sock")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.SocketPath != "/run/custom/override.sock" {
		t.Errorf("SocketPath = %q, want env override", cfg.SocketPath)
	}
}

func TestAdminTokenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)

	t.Setenv(adminTokenEnv, "super-secret-token")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.AdminTokenHash == "" {
		t.Fatal("AdminTokenHash not set from env override")
	}
	if cfg.AdminTokenHash == "super-secret-token" {
		t.Fatal("AdminTokenHash must be hashed, not stored plaintext")
	}
}

func TestFingerprintStableAndSensitive(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)

	cfg1, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg2, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg1.Fingerprint() != cfg2.Fingerprint() {
		t.Error("fingerprint not stable across reloads of identical file")
	}

	changedPath := writeConfig(t, dir, strings.Replace(minimalValidConfig, "abc123", "changed", 1))
	cfg3, err := LoadFile(changedPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg1.Fingerprint() == cfg3.Fingerprint() {
		t.Error("fingerprint did not change when a client's key hash changed")
	}
}

func TestRegistryFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, minimalValidConfig)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	reg := cfg.Registry()
	if reg.Len() != 2 {
		t.Fatalf("registry Len() = %d, want 2", reg.Len())
	}
	client, ok := reg.Lookup("agent-client")
	if !ok {
		t.Fatal("agent-client not found in registry")
	}
	if !client.CanSendTo("openclaw-server") {
		t.Error("agent-client should be allowed to send to openclaw-server")
	}
}
