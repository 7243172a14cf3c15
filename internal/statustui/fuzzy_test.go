// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statustui

import "testing"

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		pattern string
		want    bool
	}{
		{"empty pattern matches everything", "agent-7", "", true},
		{"exact match", "agent-7", "agent-7", true},
		{"subsequence match", "agent-7", "ag7", true},
		{"case insensitive", "Agent-7", "AGENT", true},
		{"out of order does not match", "agent-7", "7agent", false},
		{"pattern longer than text", "a7", "agent-7", false},
		{"no match", "agent-7", "zzz", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := fuzzyMatch(c.text, c.pattern); got != c.want {
				t.Fatalf("fuzzyMatch(%q, %q) = %v, want %v", c.text, c.pattern, got, c.want)
			}
		})
	}
}
