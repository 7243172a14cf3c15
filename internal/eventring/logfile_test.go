// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventring

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"
)

func TestLogAppenderWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.log")

	a, err := NewLogAppender(path, 10*1024*1024, "")
	if err != nil {
		t.Fatalf("NewLogAppender: %v", err)
	}

	event := Event{Seq: 1, Time: time.Now().UTC(), Level: LevelInfo, Type: "startup", Message: "daemon starting"}
	if err := a.Append(event); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"type":"startup"`) {
		t.Errorf("log file does not contain expected event: %s", data)
	}
}

func TestLogAppenderRotatesOnThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.log")

	// A tiny threshold forces rotation after the first event.
	a, err := NewLogAppender(path, 1, "")
	if err != nil {
		t.Fatalf("NewLogAppender: %v", err)
	}
	defer a.Close()

	event := Event{Seq: 1, Time: time.Now().UTC(), Level: LevelInfo, Type: "tick", Message: "m"}
	if err := a.Append(event); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var gzFound bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".gz") {
			gzFound = true
		}
	}
	if !gzFound {
		t.Errorf("expected a rotated .gz segment in %s, found: %v", dir, entries)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("active segment missing after rotation: %v", err)
	}
}

func TestLogAppenderEncryptedSegmentIsNotPlaintext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.log")

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generating test age identity: %v", err)
	}

	a, err := NewLogAppender(path, 10*1024*1024, identity.Recipient().String())
	if err != nil {
		t.Fatalf("NewLogAppender with recipient: %v", err)
	}

	event := Event{Seq: 1, Time: time.Now().UTC(), Level: LevelInfo, Type: "startup", Message: "secret-marker-value"}
	if err := a.Append(event); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-marker-value") {
		t.Error("encrypted log segment contains plaintext event message")
	}
}
