// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/models"
)

// ensureBaselineAccounts creates the chart-of-accounts rows the ledger
// postings reference. Existing rows are left untouched.
func (db *DB) ensureBaselineAccounts() error {
	ctx, cancel := schemaContext()
	defer cancel()

	baseline := []struct{ name, accountType string }{
		{"Cash", "Cash"},
		{"Bank", "Bank"},
		{receivableAccount, "Receivable"},
		{"Sales", "Income"},
	}
	for _, a := range baseline {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO accounts (name, account_type) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			a.name, a.accountType); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", a.name, err)
		}
	}
	return nil
}

// SeedDemoData loads a small demo dataset so the reports and scheduled
// jobs have something to chew on. Idempotent: it skips when any demo
// customer already exists.
func (db *DB) SeedDemoData() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var count int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers WHERE name LIKE 'DEMO-%'`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check demo data: %w", err)
	}
	if count > 0 {
		return nil
	}

	dblog := logging.Component("database")
	dblog.Info().Msg("Seeding demo dataset")

	customers := []struct{ name, fullName, mobile string }{
		{"DEMO-CUST-001", "Geedi Trading", "252611000111"},
		{"DEMO-CUST-002", "Sahal Stores", "252611000222"},
		{"DEMO-CUST-003", "Badbaado Wholesale", ""},
	}
	for _, c := range customers {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO customers (name, customer_name, mobile) VALUES (?, ?, ?)`,
			c.name, c.fullName, nullIfEmpty(c.mobile)); err != nil {
			return fmt.Errorf("failed to seed customer: %w", err)
		}
	}

	items := []struct {
		name, itemName, uom string
		threshold           float64
	}{
		{"DEMO-ITEM-001", "Rice 25kg", "Bag", 10},
		{"DEMO-ITEM-002", "Sugar 1kg", "Pkt", 50},
		{"DEMO-ITEM-003", "Cooking Oil 5L", "Can", 8},
	}
	for _, i := range items {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO items (name, item_name, uom, low_stock_threshold) VALUES (?, ?, ?, ?)`,
			i.name, i.itemName, i.uom, i.threshold); err != nil {
			return fmt.Errorf("failed to seed item: %w", err)
		}
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO warehouses (name) VALUES ('Main Store'), ('Branch Store') ON CONFLICT DO NOTHING`); err != nil {
		return fmt.Errorf("failed to seed warehouses: %w", err)
	}

	bins := []struct {
		item, warehouse string
		qty             float64
	}{
		{"DEMO-ITEM-001", "Main Store", 6},   // below threshold
		{"DEMO-ITEM-002", "Main Store", 120}, // healthy
		{"DEMO-ITEM-003", "Branch Store", 3}, // below threshold
	}
	for _, b := range bins {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO bins (item, warehouse, actual_qty) VALUES (?, ?, ?) ON CONFLICT (item, warehouse) DO UPDATE SET actual_qty = excluded.actual_qty`,
			b.item, b.warehouse, b.qty); err != nil {
			return fmt.Errorf("failed to seed bin: %w", err)
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	invoices := []struct {
		name, customer     string
		daysAgo, dueInDays int
		grand, outstanding float64
	}{
		{"DEMO-SINV-001", "DEMO-CUST-001", 20, -10, 1500, 500}, // overdue
		{"DEMO-SINV-002", "DEMO-CUST-002", 5, 25, 800, 0},      // paid
		{"DEMO-SINV-003", "DEMO-CUST-003", 2, 28, 2400, 2400},  // open, not due
	}
	for _, inv := range invoices {
		posting := today.AddDate(0, 0, -inv.daysAgo)
		due := today.AddDate(0, 0, inv.dueInDays)
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO sales_invoices (name, customer, posting_date, due_date, grand_total, outstanding_amount, docstatus)
			 VALUES (?, ?, ?, ?, ?, ?, 1)`,
			inv.name, inv.customer, posting, due, inv.grand, inv.outstanding); err != nil {
			return fmt.Errorf("failed to seed invoice: %w", err)
		}

		// Receivable accrual plus cash receipt for the paid portion.
		glRows := []models.GLEntry{
			{Account: receivableAccount, Debit: decimal.NewFromFloat(inv.grand), VoucherType: DoctypeSalesInvoice, VoucherNo: inv.name},
			{Account: "Sales", Credit: decimal.NewFromFloat(inv.grand), VoucherType: DoctypeSalesInvoice, VoucherNo: inv.name},
		}
		if paid := inv.grand - inv.outstanding; paid > 0 {
			glRows = append(glRows,
				models.GLEntry{Account: "Cash", Debit: decimal.NewFromFloat(paid), VoucherType: DoctypePaymentEntry, VoucherNo: "DEMO-PAY-" + inv.name, ModeOfPayment: "Cash"},
				models.GLEntry{Account: receivableAccount, Credit: decimal.NewFromFloat(paid), VoucherType: DoctypePaymentEntry, VoucherNo: "DEMO-PAY-" + inv.name, ModeOfPayment: "Cash"},
			)
		}
		for _, gl := range glRows {
			debit, _ := gl.Debit.Float64()
			credit, _ := gl.Credit.Float64()
			if _, err := db.conn.ExecContext(ctx,
				`INSERT INTO gl_entries (id, posting_date, account, debit, credit, voucher_type, voucher_no, party, party_type, mode_of_payment, docstatus)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'Customer', ?, 1)`,
				uuid.NewString(), posting, gl.Account, debit, credit,
				gl.VoucherType, gl.VoucherNo, inv.customer, nullIfEmpty(gl.ModeOfPayment)); err != nil {
				return fmt.Errorf("failed to seed gl entry: %w", err)
			}
		}
	}

	return nil
}
