// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the bridge daemon's static
// configuration: clients, limits, and paths.
//
// Configuration is loaded from a single file named by:
//   - the OPENCLAW_BRIDGE_CONFIG environment variable, or
//   - the --config flag passed to openclaw-bridged
//
// There are no fallbacks or automatic discovery. The file is the
// single source of truth; OPENCLAW_BRIDGE_SOCKET and
// OPENCLAW_BRIDGE_ADMIN_TOKEN may override two specific fields (see
// Load), but nothing silently substitutes for a missing or invalid
// file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/dax8it/openclaw-bridge/internal/registry"
)

// Defaults applied before the config file is parsed over them.
const (
	DefaultSocketPath    = "openclaw-bridge.sock"
	DefaultSocketMode    = "0660"
	DefaultHTTPHost      = "127.0.0.1"
	DefaultHTTPPort      = 8642
	DefaultMaxFrameBytes = 65536
	DefaultQueueLimit    = 500
	DefaultLogFilePath   = "openclaw-bridge.log"
	// DefaultLogRotateBytes is the gzip rotation threshold for the
	// event-ring log mirror.
	DefaultLogRotateBytes = 10 * 1024 * 1024
)

// ClientConfig is the JSON shape of one entry in the "clients" array.
type ClientConfig struct {
	ID            string   `json:"id"`
	KeyHash       string   `json:"keyHash"`
	DestAllowlist []string `json:"destAllowlist"`
}

// Config is the frozen configuration handed to the rest of the
// daemon after LoadFile succeeds.
type Config struct {
	SocketPath    string         `json:"socketPath"`
	SocketMode    string         `json:"socketMode"`
	HTTPHost      string         `json:"httpHost"`
	HTTPPort      int            `json:"httpPort"`
	MaxFrameBytes int            `json:"maxFrameBytes"`
	QueueLimit    int            `json:"queueLimit"`
	LogFilePath   string         `json:"logFilePath"`
	Clients       []ClientConfig `json:"clients"`

	// AdminTokenHash is optional. When empty, the HTTP control plane
	// rejects every /api/ request.
	AdminTokenHash string `json:"adminTokenHash,omitempty"`

	// LogRotateBytes and LogEncryptionRecipient are both optional.
	// When unset, the log mirror rotates at DefaultLogRotateBytes and
	// is written unencrypted.
	LogRotateBytes         int64  `json:"logRotateBytes,omitempty"`
	LogEncryptionRecipient string `json:"logEncryptionRecipient,omitempty"`
}

// Default returns a Config with every field set to its documented
// default. These exist to give every field a sensible zero value
// before the file is parsed over them — not as a substitute for the
// required config file.
func Default() *Config {
	return &Config{
		SocketPath:      DefaultSocketPath,
		SocketMode:      DefaultSocketMode,
		HTTPHost:        DefaultHTTPHost,
		HTTPPort:        DefaultHTTPPort,
		MaxFrameBytes:   DefaultMaxFrameBytes,
		QueueLimit:      DefaultQueueLimit,
		LogFilePath:     DefaultLogFilePath,
		LogRotateBytes:  DefaultLogRotateBytes,
		Clients:         nil,
		AdminTokenHash:  "",
	}
}

// configPathEnv names the environment variable carrying the config
// file path. socketPathEnv and adminTokenEnv name two narrow
// overrides layered on top of the file.
const (
	configPathEnv = "OPENCLAW_BRIDGE_CONFIG"
	socketPathEnv = "OPENCLAW_BRIDGE_SOCKET"
	adminTokenEnv = "OPENCLAW_BRIDGE_ADMIN_TOKEN"
)

// Load reads the config path from OPENCLAW_BRIDGE_CONFIG. There is no
// fallback: if the variable is unset, Load fails rather than guessing
// a path.
func Load() (*Config, error) {
	path := os.Getenv(configPathEnv)
	if path == "" {
		return nil, fmt.Errorf("%s is not set; pass --config or set %s to the config file path", configPathEnv, configPathEnv)
	}
	return LoadFile(path)
}

// LoadFile reads, parses, and validates the config file at path,
// applying the OPENCLAW_BRIDGE_SOCKET and OPENCLAW_BRIDGE_ADMIN_TOKEN
// environment overrides afterward. It returns a validated,
// ready-to-use Config, or a joined error describing every validation
// failure found.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	// jsonc.ToJSON strips // and /* */ comments and trailing commas;
	// a comment-free file passes through unchanged, so this stays
	// within "JSON configuration file" while letting operators
	// annotate the file they hand-edit.
	if err := jsonUnmarshalStrict(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if socket := os.Getenv(socketPathEnv); socket != "" {
		cfg.SocketPath = socket
	}
	if token := os.Getenv(adminTokenEnv); token != "" {
		cfg.AdminTokenHash = hashAdminToken(token)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Registry builds the immutable client registry from the validated
// config. Callers must have already called Validate (LoadFile does
// this).
func (c *Config) Registry() *registry.Registry {
	clients := make([]registry.Client, 0, len(c.Clients))
	for _, cc := range c.Clients {
		clients = append(clients, registry.Client{
			ID:            cc.ID,
			KeyHash:       cc.KeyHash,
			DestAllowlist: append([]string(nil), cc.DestAllowlist...),
		})
	}
	return registry.New(clients)
}

// Validate checks every configuration invariant. Every failure is
// collected and returned together via errors.Join so an operator
// sees the whole list of problems on one run, not one-at-a-time.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Clients) == 0 {
		errs = append(errs, errors.New("clients: must be a non-empty array"))
	}

	seen := make(map[string]bool, len(c.Clients))
	for i, cc := range c.Clients {
		if cc.ID == "" {
			errs = append(errs, fmt.Errorf("clients[%d]: id is required", i))
		} else if seen[cc.ID] {
			errs = append(errs, fmt.Errorf("clients[%d]: duplicate client id %q", i, cc.ID))
		} else {
			seen[cc.ID] = true
		}
		if cc.KeyHash == "" {
			errs = append(errs, fmt.Errorf("clients[%d] (%s): keyHash is required", i, cc.ID))
		}
		if cc.DestAllowlist == nil {
			errs = append(errs, fmt.Errorf("clients[%d] (%s): destAllowlist must be an array (may be empty)", i, cc.ID))
		}
	}

	if c.SocketPath == "" {
		errs = append(errs, errors.New("socketPath: must not be empty"))
	}
	if c.MaxFrameBytes <= 0 {
		errs = append(errs, errors.New("maxFrameBytes: must be positive"))
	}
	if c.QueueLimit <= 0 {
		errs = append(errs, errors.New("queueLimit: must be positive"))
	}
	if _, err := parseSocketMode(c.SocketMode); err != nil {
		errs = append(errs, fmt.Errorf("socketMode: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
