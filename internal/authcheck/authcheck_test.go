// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package authcheck

import "testing"

func TestVerify(t *testing.T) {
	stored := HashHex("correct-horse-battery-staple")

	cases := []struct {
		name      string
		candidate string
		stored    string
		want      bool
	}{
		{"correct secret", "correct-horse-battery-staple", stored, true},
		{"wrong secret", "wrong-password", stored, false},
		{"empty candidate", "", stored, false},
		{"empty stored hash", "correct-horse-battery-staple", "", false},
		{"malformed stored hash", "correct-horse-battery-staple", "not-hex!!", false},
		{"short stored hash", "correct-horse-battery-staple", "abcd", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Verify(tc.candidate, tc.stored); got != tc.want {
				t.Errorf("Verify(%q, %q) = %v, want %v", tc.candidate, tc.stored, got, tc.want)
			}
		})
	}
}

func TestHashHexDeterministic(t *testing.T) {
	a := HashHex("some-secret")
	b := HashHex("some-secret")
	if a != b {
		t.Errorf("HashHex is not deterministic: %q != %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("HashHex length = %d, want 64 (hex of 32 bytes)", len(a))
	}
}
