// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package models

import "time"

// Notification channels.
const (
	ChannelInApp = "inapp"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Recipient rule types.
const (
	RecipientUser = "user"
	RecipientRole = "role"
)

// NotificationRule fires on document lifecycle events and fans a
// rendered message out to its recipients over one channel.
//
// Condition is either empty (always true), a JSON object of
// field-to-expected clauses, or a boolean expression evaluated against
// the document.
type NotificationRule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name" validate:"required"`
	Enabled         bool            `json:"enabled"`
	Doctype         string          `json:"doctype" validate:"required"`
	TriggerEvent    string          `json:"trigger_event" validate:"required,oneof=save submit cancel"`
	Condition       string          `json:"condition"`
	SubjectTemplate string          `json:"subject_template" validate:"required"`
	MessageTemplate string          `json:"message_template"`
	Channel         string          `json:"channel" validate:"required,oneof=inapp email sms"`
	Recipients      []RecipientRule `json:"recipients" validate:"min=1,dive"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RecipientRule names either a single user or every enabled user
// holding a role.
type RecipientRule struct {
	Type  string `json:"type" validate:"required,oneof=user role"`
	Value string `json:"value" validate:"required"`
}

// NotificationLog is one delivered (or attempted) notification to one
// user. DocumentType/DocumentName tie the entry back to the document
// that triggered it, which is also how scheduled jobs avoid notifying
// twice for the same document.
type NotificationLog struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	ForUser      string    `json:"for_user"`
	Channel      string    `json:"channel"`
	DocumentType string    `json:"document_type"`
	DocumentName string    `json:"document_name"`
	FromUser     string    `json:"from_user,omitempty"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}
