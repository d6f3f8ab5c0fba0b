// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package models

import "time"

// Docstatus values follow the ledger convention: 0 draft, 1 submitted,
// 2 cancelled. Submitted documents are immutable except for cancellation.
const (
	DocstatusDraft     = 0
	DocstatusSubmitted = 1
	DocstatusCancelled = 2
)

// Lifecycle event names published on the document bus.
const (
	EventSave   = "save"
	EventSubmit = "submit"
	EventCancel = "cancel"
)

// Document is a stored business document. Fields holds the full field
// map as supplied by the caller; well-known doctypes are additionally
// projected into their ledger tables on save.
type Document struct {
	Doctype    string                 `json:"doctype"`
	Name       string                 `json:"name"`
	Docstatus  int                    `json:"docstatus"`
	Fields     map[string]interface{} `json:"fields"`
	Modified   time.Time              `json:"modified"`
	ModifiedBy string                 `json:"modified_by"`
}

// DocumentEvent describes a lifecycle transition of a document. Previous
// holds the field map of the stored version before the change, nil on
// first insert.
type DocumentEvent struct {
	Doctype   string                 `json:"doctype"`
	Name      string                 `json:"name"`
	Event     string                 `json:"event"`
	Docstatus int                    `json:"docstatus"`
	Fields    map[string]interface{} `json:"fields"`
	Previous  map[string]interface{} `json:"previous,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	User      string                 `json:"user"`
}
