// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package sms

import (
	"errors"
	"fmt"
	"strings"
)

// countryCode is the Somali dialing prefix applied to local numbers.
const countryCode = "252"

// NormalizeMobile strips formatting from a mobile number and localizes
// it to the 252 country code. Numbers that fit no known shape are
// returned digits-only and left for the gateway to validate.
func NormalizeMobile(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case cleaned == "":
		return ""
	case strings.HasPrefix(cleaned, countryCode):
		return cleaned
	case strings.HasPrefix(cleaned, "0"):
		return countryCode + cleaned[1:]
	case len(cleaned) == 9:
		return countryCode + cleaned
	default:
		return cleaned
	}
}

// ValidateMessage checks message content and length against the
// configured character limit. A non-positive limit disables the length
// check.
func ValidateMessage(message string, charLimit int) error {
	if strings.TrimSpace(message) == "" {
		return errors.New("sms: message cannot be empty")
	}
	if charLimit > 0 && len(message) > charLimit {
		return fmt.Errorf("sms: message exceeds %d character limit", charLimit)
	}
	return nil
}
