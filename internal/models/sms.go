// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package models

import "time"

// SMS log statuses.
const (
	SMSStatusSent    = "sent"
	SMSStatusPartial = "partial"
	SMSStatusFailed  = "failed"
	SMSStatusQueued  = "queued"
)

// SMSLog records one gateway send attempt, single or bulk.
type SMSLog struct {
	ID             string    `json:"id"`
	SentOn         time.Time `json:"sent_on"`
	Message        string    `json:"message"`
	RequestedCount int       `json:"requested_count"`
	SentCount      int       `json:"sent_count"`
	Recipients     []string  `json:"recipients"`
	Status         string    `json:"status"`
	VendorResponse string    `json:"vendor_response,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// SMSSendRequest is the API payload for a direct or queued send.
type SMSSendRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,dive,required"`
	Message    string   `json:"message" validate:"required"`
}
