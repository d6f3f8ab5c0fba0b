// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables. All columns are defined in the
// initial CREATE TABLE statements; there is no migration layer yet.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		// Chart of accounts. account_type drives the cash flow report's
		// cash/bank account resolution.
		`CREATE TABLE IF NOT EXISTS accounts (
			name TEXT PRIMARY KEY,
			account_type TEXT NOT NULL,
			enabled BOOLEAN DEFAULT TRUE
		)`,

		// General ledger postings.
		`CREATE TABLE IF NOT EXISTS gl_entries (
			id UUID PRIMARY KEY,
			posting_date DATE NOT NULL,
			account TEXT NOT NULL,
			debit DOUBLE DEFAULT 0,
			credit DOUBLE DEFAULT 0,
			voucher_type TEXT NOT NULL,
			voucher_no TEXT NOT NULL,
			party TEXT,
			party_type TEXT,
			mode_of_payment TEXT,
			remarks TEXT,
			is_cancelled BOOLEAN DEFAULT FALSE,
			docstatus INTEGER DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Ledger projection of Sales Invoice documents.
		`CREATE TABLE IF NOT EXISTS sales_invoices (
			name TEXT PRIMARY KEY,
			customer TEXT NOT NULL,
			posting_date DATE NOT NULL,
			due_date DATE,
			grand_total DOUBLE DEFAULT 0,
			discount_amount DOUBLE DEFAULT 0,
			outstanding_amount DOUBLE DEFAULT 0,
			docstatus INTEGER DEFAULT 0,
			modified TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Payment mode child rows of an invoice.
		`CREATE TABLE IF NOT EXISTS invoice_payments (
			invoice TEXT NOT NULL,
			mode_of_payment TEXT NOT NULL,
			amount DOUBLE DEFAULT 0
		)`,

		// Sales person child rows of an invoice.
		`CREATE TABLE IF NOT EXISTS sales_team (
			invoice TEXT NOT NULL,
			sales_person TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			name TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL,
			mobile TEXT,
			enabled BOOLEAN DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS items (
			name TEXT PRIMARY KEY,
			item_name TEXT NOT NULL,
			uom TEXT DEFAULT 'Nos',
			low_stock_threshold DOUBLE DEFAULT 0,
			enabled BOOLEAN DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS warehouses (
			name TEXT PRIMARY KEY,
			enabled BOOLEAN DEFAULT TRUE
		)`,

		// Per-item, per-warehouse stock level.
		`CREATE TABLE IF NOT EXISTS bins (
			item TEXT NOT NULL,
			warehouse TEXT NOT NULL,
			actual_qty DOUBLE DEFAULT 0,
			PRIMARY KEY (item, warehouse)
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT,
			mobile TEXT,
			role TEXT DEFAULT 'viewer',
			enabled BOOLEAN DEFAULT TRUE,
			password_hash TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// Additional roles beyond users.role.
		`CREATE TABLE IF NOT EXISTS user_roles (
			username TEXT NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY (username, role)
		)`,

		`CREATE TABLE IF NOT EXISTS notification_rules (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			enabled BOOLEAN DEFAULT TRUE,
			doctype TEXT NOT NULL,
			trigger_event TEXT NOT NULL,
			condition TEXT,
			subject_template TEXT NOT NULL,
			message_template TEXT,
			channel TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS rule_recipients (
			rule_id UUID NOT NULL,
			recipient_type TEXT NOT NULL,
			recipient_value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS notification_log (
			id UUID PRIMARY KEY,
			subject TEXT NOT NULL,
			message TEXT,
			for_user TEXT NOT NULL,
			channel TEXT NOT NULL,
			document_type TEXT,
			document_name TEXT,
			from_user TEXT,
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS sms_log (
			id UUID PRIMARY KEY,
			sent_on TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			message TEXT NOT NULL,
			requested_count INTEGER DEFAULT 0,
			sent_count INTEGER DEFAULT 0,
			recipients TEXT,
			status TEXT NOT NULL,
			vendor_response TEXT,
			error TEXT
		)`,

		// Generic document store driving the rule engine. Well-known
		// doctypes are additionally projected into the ledger tables.
		`CREATE TABLE IF NOT EXISTS documents (
			doctype TEXT NOT NULL,
			name TEXT NOT NULL,
			docstatus INTEGER DEFAULT 0,
			fields TEXT NOT NULL,
			modified TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			modified_by TEXT,
			PRIMARY KEY (doctype, name)
		)`,
	}
}

// createIndexes creates indexes for common query patterns.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_gl_posting_date ON gl_entries(posting_date)`,
		`CREATE INDEX IF NOT EXISTS idx_gl_account ON gl_entries(account)`,
		`CREATE INDEX IF NOT EXISTS idx_gl_party ON gl_entries(party)`,
		`CREATE INDEX IF NOT EXISTS idx_gl_voucher ON gl_entries(voucher_type, voucher_no)`,
		`CREATE INDEX IF NOT EXISTS idx_si_posting_date ON sales_invoices(posting_date)`,
		`CREATE INDEX IF NOT EXISTS idx_si_due_date ON sales_invoices(due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_nl_document ON notification_log(document_type, document_name)`,
		`CREATE INDEX IF NOT EXISTS idx_nl_user ON notification_log(for_user)`,
		`CREATE INDEX IF NOT EXISTS idx_sms_sent_on ON sms_log(sent_on)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_trigger ON notification_rules(doctype, trigger_event)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
