// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statustui

import "strings"

// fuzzyMatch reports whether every rune in pattern appears in text, in
// order, case-insensitively (a subsequence match). This is the same
// matching discipline lib/ticketui's filter uses for the ticket list,
// adapted here without that package's fzf/slab machinery since the
// client list this filters is at most a few hundred rows.
func fuzzyMatch(text, pattern string) bool {
	if pattern == "" {
		return true
	}
	text = strings.ToLower(text)
	pattern = strings.ToLower(pattern)

	patternIndex := 0
	patternRunes := []rune(pattern)
	for _, r := range text {
		if patternRunes[patternIndex] == r {
			patternIndex++
			if patternIndex == len(patternRunes) {
				return true
			}
		}
	}
	return false
}
