// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerline/ledgerline/internal/models"
)

func TestDocumentLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	doc := &models.Document{
		Doctype: DoctypeSalesInvoice,
		Name:    "SINV-0001",
		Fields: map[string]interface{}{
			"customer":     "CUST-001",
			"posting_date": "2026-08-01",
			"due_date":     "2026-08-15",
			"grand_total":  1000.0,
			"payments": []interface{}{
				map[string]interface{}{"mode_of_payment": "Cash", "amount": 400.0},
			},
		},
		ModifiedBy: "tester",
	}

	prev, err := db.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if prev != nil {
		t.Error("expected nil previous fields on first save")
	}

	// Second save returns the stored previous version.
	doc.Fields["grand_total"] = 1200.0
	prev, err = db.SaveDocument(ctx, doc)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if prev == nil || prev["grand_total"] != 1000.0 {
		t.Errorf("previous fields = %v, want grand_total 1000", prev)
	}

	submitted, err := db.SubmitDocument(ctx, DoctypeSalesInvoice, "SINV-0001", "tester")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if submitted.Docstatus != models.DocstatusSubmitted {
		t.Errorf("docstatus = %d, want %d", submitted.Docstatus, models.DocstatusSubmitted)
	}

	// Submit posts receivable/sales GL rows.
	var glCount int
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM gl_entries WHERE voucher_type = ? AND voucher_no = ?`,
		DoctypeSalesInvoice, "SINV-0001").Scan(&glCount); err != nil {
		t.Fatal(err)
	}
	if glCount != 2 {
		t.Errorf("gl entries after submit = %d, want 2", glCount)
	}

	// A submitted document cannot be saved again.
	if _, err := db.SaveDocument(ctx, doc); !errors.Is(err, ErrDocstatus) {
		t.Errorf("save of submitted doc: err = %v, want ErrDocstatus", err)
	}

	cancelled, err := db.CancelDocument(ctx, DoctypeSalesInvoice, "SINV-0001", "tester")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Docstatus != models.DocstatusCancelled {
		t.Errorf("docstatus = %d, want %d", cancelled.Docstatus, models.DocstatusCancelled)
	}

	var cancelledGL int
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM gl_entries WHERE voucher_no = 'SINV-0001' AND is_cancelled`).Scan(&cancelledGL); err != nil {
		t.Fatal(err)
	}
	if cancelledGL != 2 {
		t.Errorf("cancelled gl entries = %d, want 2", cancelledGL)
	}

	// Cancelling twice is invalid.
	if _, err := db.CancelDocument(ctx, DoctypeSalesInvoice, "SINV-0001", "tester"); !errors.Is(err, ErrDocstatus) {
		t.Errorf("double cancel: err = %v, want ErrDocstatus", err)
	}
}

func TestDocumentProjections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		doc     *models.Document
		query   string
		wantOne bool
	}{
		{
			name: "customer projection",
			doc: &models.Document{
				Doctype: DoctypeCustomer,
				Name:    "CUST-100",
				Fields: map[string]interface{}{
					"customer_name": "Xasan Retail",
					"mobile":        "252611234567",
				},
			},
			query:   `SELECT COUNT(*) FROM customers WHERE name = 'CUST-100' AND mobile = '252611234567'`,
			wantOne: true,
		},
		{
			name: "item projection",
			doc: &models.Document{
				Doctype: DoctypeItem,
				Name:    "ITEM-100",
				Fields: map[string]interface{}{
					"item_name":           "Flour 10kg",
					"uom":                 "Bag",
					"low_stock_threshold": 5.0,
				},
			},
			query:   `SELECT COUNT(*) FROM items WHERE name = 'ITEM-100' AND low_stock_threshold = 5`,
			wantOne: true,
		},
		{
			name: "bin projection",
			doc: &models.Document{
				Doctype: DoctypeBin,
				Name:    "BIN-100",
				Fields: map[string]interface{}{
					"item":       "ITEM-100",
					"warehouse":  "Main Store",
					"actual_qty": 12.0,
				},
			},
			query:   `SELECT COUNT(*) FROM bins WHERE item = 'ITEM-100' AND warehouse = 'Main Store' AND actual_qty = 12`,
			wantOne: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.SaveDocument(ctx, tt.doc); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			var count int
			if err := db.conn.QueryRow(tt.query).Scan(&count); err != nil {
				t.Fatal(err)
			}
			if (count == 1) != tt.wantOne {
				t.Errorf("projection row count = %d", count)
			}
		})
	}
}

func TestPaymentEntryReducesOutstanding(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inv := &models.Document{
		Doctype: DoctypeSalesInvoice,
		Name:    "SINV-0002",
		Fields: map[string]interface{}{
			"customer":     "CUST-001",
			"posting_date": "2026-08-10",
			"grand_total":  500.0,
		},
	}
	if _, err := db.SaveDocument(ctx, inv); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SubmitDocument(ctx, DoctypeSalesInvoice, "SINV-0002", "tester"); err != nil {
		t.Fatal(err)
	}

	pay := &models.Document{
		Doctype: DoctypePaymentEntry,
		Name:    "PAY-0001",
		Fields: map[string]interface{}{
			"party":             "CUST-001",
			"posting_date":      "2026-08-12",
			"paid_amount":       300.0,
			"paid_to":           "Cash",
			"mode_of_payment":   "Cash",
			"reference_invoice": "SINV-0002",
		},
	}
	if _, err := db.SaveDocument(ctx, pay); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SubmitDocument(ctx, DoctypePaymentEntry, "PAY-0001", "tester"); err != nil {
		t.Fatal(err)
	}

	var outstanding float64
	if err := db.conn.QueryRow(
		`SELECT outstanding_amount FROM sales_invoices WHERE name = 'SINV-0002'`).Scan(&outstanding); err != nil {
		t.Fatal(err)
	}
	if outstanding != 200 {
		t.Errorf("outstanding after payment = %v, want 200", outstanding)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetDocument(context.Background(), "Sales Invoice", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
