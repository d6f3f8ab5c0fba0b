// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/config"
)

// newTestDB opens a fresh database in a temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "512MB",
	}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func TestNewInitializesSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	// Baseline accounts must exist for ledger postings.
	var count int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE account_type IN ('Cash', 'Bank')`).Scan(&count); err != nil {
		t.Fatalf("failed to count accounts: %v", err)
	}
	if count < 2 {
		t.Errorf("expected at least 2 cash/bank baseline accounts, got %d", count)
	}
}

func TestSeedDemoDataIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.SeedDemoData(); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := db.SeedDemoData(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM customers WHERE name LIKE 'DEMO-%'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 demo customers after double seed, got %d", count)
	}
}

// insertGL is a test fixture helper for raw ledger rows.
func insertGL(t *testing.T, db *DB, postingDate time.Time, account string, debit, credit float64, voucherType, voucherNo, party, mode string) {
	t.Helper()
	partyType := ""
	if party != "" {
		partyType = "Customer"
	}
	_, err := db.conn.Exec(
		`INSERT INTO gl_entries (id, posting_date, account, debit, credit, voucher_type, voucher_no, party, party_type, mode_of_payment, docstatus)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		uuid.NewString(), postingDate, account, debit, credit, voucherType, voucherNo,
		nullIfEmpty(party), nullIfEmpty(partyType), nullIfEmpty(mode))
	if err != nil {
		t.Fatalf("failed to insert gl entry: %v", err)
	}
}
