// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statustui

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
)

// helpMarkdown is the embedded source for the `?` help overlay.
// Rendered through goldmark at startup rather than hand-styled, so the
// help text stays ordinary Markdown to edit.
const helpMarkdown = `
# openclaw-bridge-status

A read-only and send-capable view over the bridge's HTTP control plane.

## Keys

- **↑/↓** or **j/k** — move the client selection
- **/** — start typing to fuzzy-filter the client list
- **esc** — clear the filter, or close an open overlay
- **s** — open the send form for the selected client
- **enter** — in the send form, submit; in the filter, confirm
- **?** — toggle this help
- **q** / **ctrl+c** — quit

## Send form fields

- **to** — destination client id (must be in the selected client's allowlist)
- **type** — envelope type string, defaults to "message"
- **payload** — raw JSON payload, defaults to null
`

// tagStripper removes every HTML tag goldmark emits, since the
// terminal has no HTML renderer. What's left is the block text with
// blank-line structure intact, which lipgloss styling then recolors.
var tagStripper = regexp.MustCompile(`<[^>]*>`)

// renderHelp converts helpMarkdown to HTML via goldmark, strips the
// tags, and applies terminal styling to the remaining block text. This
// is a much thinner rendering path than a full AST walk: the help
// overlay is static, operator-facing prose with no tables or code
// blocks that would need per-node styling.
func renderHelp(width int) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(helpMarkdown), &buf); err != nil {
		return helpMarkdown
	}
	plain := tagStripper.ReplaceAllString(buf.String(), "")
	plain = strings.ReplaceAll(plain, "&amp;", "&")

	lines := strings.Split(strings.TrimSpace(plain), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			cleaned = append(cleaned, "")
			continue
		}
		cleaned = append(cleaned, line)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		Width(width - 4)
	return box.Render(strings.Join(cleaned, "\n"))
}
