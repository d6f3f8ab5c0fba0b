// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package notify

import (
	"regexp"
	"strings"
)

var (
	brTagRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockEndRe = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr)>`)
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	multiNLRe  = regexp.MustCompile(`\n{3,}`)
)

// HTMLToPlaintext strips markup from a notification body so it can be
// sent over channels that only carry plain text.
func HTMLToPlaintext(html string) string {
	text := brTagRe.ReplaceAllString(html, "\n")
	text = blockEndRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")

	replacements := map[string]string{
		"&nbsp;": " ",
		"&amp;":  "&",
		"&lt;":   "<",
		"&gt;":   ">",
		"&quot;": `"`,
		"&#39;":  "'",
	}
	for entity, char := range replacements {
		text = strings.ReplaceAll(text, entity, char)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = multiNLRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
