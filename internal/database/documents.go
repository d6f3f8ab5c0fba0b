// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/models"
)

// Well-known doctypes with ledger projections.
const (
	DoctypeSalesInvoice = "Sales Invoice"
	DoctypePaymentEntry = "Payment Entry"
	DoctypeCustomer     = "Customer"
	DoctypeItem         = "Item"
	DoctypeBin          = "Bin"
)

// Receivable account used for invoice and payment postings.
const receivableAccount = "Debtors"

// ErrDocstatus is returned on an invalid lifecycle transition, e.g.
// saving a submitted document or cancelling a draft.
var ErrDocstatus = errors.New("invalid docstatus transition")

// GetDocument loads one stored document.
func (db *DB) GetDocument(ctx context.Context, doctype, name string) (*models.Document, error) {
	var (
		doc    models.Document
		raw    string
		modBy  sql.NullString
		status int
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT docstatus, fields, modified, modified_by FROM documents WHERE doctype = ? AND name = ?`,
		doctype, name).Scan(&status, &raw, &doc.Modified, &modBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s/%s: %w", doctype, name, err)
	}

	doc.Doctype = doctype
	doc.Name = name
	doc.Docstatus = status
	doc.ModifiedBy = modBy.String
	if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return &doc, nil
}

// SaveDocument inserts or updates a draft document and refreshes its
// ledger projection. It returns the previous field map, nil when the
// document is new. Submitted and cancelled documents cannot be saved.
func (db *DB) SaveDocument(ctx context.Context, doc *models.Document) (prevFields map[string]interface{}, err error) {
	done := db.track("save", "documents", time.Now())
	defer func() { done(err) }()

	prev, err := db.GetDocument(ctx, doc.Doctype, doc.Name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if prev != nil {
		if prev.Docstatus != models.DocstatusDraft {
			return nil, fmt.Errorf("%w: document %s/%s has docstatus %d",
				ErrDocstatus, doc.Doctype, doc.Name, prev.Docstatus)
		}
		prevFields = prev.Fields
	}

	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}

	doc.Docstatus = models.DocstatusDraft
	doc.Modified = time.Now().UTC()

	if prev == nil {
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO documents (doctype, name, docstatus, fields, modified, modified_by)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			doc.Doctype, doc.Name, doc.Docstatus, string(raw), doc.Modified, doc.ModifiedBy)
	} else {
		_, err = db.conn.ExecContext(ctx,
			`UPDATE documents SET fields = ?, modified = ?, modified_by = ? WHERE doctype = ? AND name = ?`,
			string(raw), doc.Modified, doc.ModifiedBy, doc.Doctype, doc.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save document %s/%s: %w", doc.Doctype, doc.Name, err)
	}

	if err = db.projectDocument(ctx, doc); err != nil {
		return nil, err
	}
	return prevFields, nil
}

// SubmitDocument moves a draft to submitted, refreshes the projection,
// and posts ledger entries for accounting doctypes. Returns the field
// map of the document.
func (db *DB) SubmitDocument(ctx context.Context, doctype, name, user string) (*models.Document, error) {
	doc, err := db.GetDocument(ctx, doctype, name)
	if err != nil {
		return nil, err
	}
	if doc.Docstatus != models.DocstatusDraft {
		return nil, fmt.Errorf("%w: document %s/%s has docstatus %d", ErrDocstatus, doctype, name, doc.Docstatus)
	}

	doc.Docstatus = models.DocstatusSubmitted
	doc.Modified = time.Now().UTC()
	doc.ModifiedBy = user
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE documents SET docstatus = ?, modified = ?, modified_by = ? WHERE doctype = ? AND name = ?`,
		doc.Docstatus, doc.Modified, user, doctype, name); err != nil {
		return nil, fmt.Errorf("failed to submit document %s/%s: %w", doctype, name, err)
	}

	if err := db.projectDocument(ctx, doc); err != nil {
		return nil, err
	}
	if err := db.postLedgerEntries(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CancelDocument moves a submitted document to cancelled and flags its
// ledger entries.
func (db *DB) CancelDocument(ctx context.Context, doctype, name, user string) (*models.Document, error) {
	doc, err := db.GetDocument(ctx, doctype, name)
	if err != nil {
		return nil, err
	}
	if doc.Docstatus != models.DocstatusSubmitted {
		return nil, fmt.Errorf("%w: document %s/%s has docstatus %d", ErrDocstatus, doctype, name, doc.Docstatus)
	}

	doc.Docstatus = models.DocstatusCancelled
	doc.Modified = time.Now().UTC()
	doc.ModifiedBy = user
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE documents SET docstatus = ?, modified = ?, modified_by = ? WHERE doctype = ? AND name = ?`,
		doc.Docstatus, doc.Modified, user, doctype, name); err != nil {
		return nil, fmt.Errorf("failed to cancel document %s/%s: %w", doctype, name, err)
	}

	if err := db.projectDocument(ctx, doc); err != nil {
		return nil, err
	}
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE gl_entries SET is_cancelled = TRUE, docstatus = 2 WHERE voucher_type = ? AND voucher_no = ?`,
		doctype, name); err != nil {
		return nil, fmt.Errorf("failed to cancel ledger entries for %s/%s: %w", doctype, name, err)
	}
	return doc, nil
}

// projectDocument syncs a well-known doctype into its ledger table.
// Unknown doctypes only live in the documents table.
func (db *DB) projectDocument(ctx context.Context, doc *models.Document) error {
	switch doc.Doctype {
	case DoctypeSalesInvoice:
		return db.projectSalesInvoice(ctx, doc)
	case DoctypeCustomer:
		return db.projectCustomer(ctx, doc)
	case DoctypeItem:
		return db.projectItem(ctx, doc)
	case DoctypeBin:
		return db.projectBin(ctx, doc)
	}
	return nil
}

func (db *DB) projectSalesInvoice(ctx context.Context, doc *models.Document) error {
	f := doc.Fields
	posting := fieldDate(f, "posting_date", time.Now())
	due := fieldDate(f, "due_date", posting)
	grand := fieldFloat(f, "grand_total")
	outstanding := grand
	if _, ok := f["outstanding_amount"]; ok {
		outstanding = fieldFloat(f, "outstanding_amount")
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sales_invoices (name, customer, posting_date, due_date, grand_total, discount_amount, outstanding_amount, docstatus, modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
			customer = excluded.customer,
			posting_date = excluded.posting_date,
			due_date = excluded.due_date,
			grand_total = excluded.grand_total,
			discount_amount = excluded.discount_amount,
			outstanding_amount = excluded.outstanding_amount,
			docstatus = excluded.docstatus,
			modified = excluded.modified`,
		doc.Name, fieldString(f, "customer"), posting, due, grand,
		fieldFloat(f, "discount_amount"), outstanding, doc.Docstatus, doc.Modified)
	if err != nil {
		return fmt.Errorf("failed to project sales invoice %s: %w", doc.Name, err)
	}

	// Child rows are replaced wholesale on every save.
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM invoice_payments WHERE invoice = ?`, doc.Name); err != nil {
		return fmt.Errorf("failed to clear invoice payments: %w", err)
	}
	for _, row := range fieldRows(f, "payments") {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO invoice_payments (invoice, mode_of_payment, amount) VALUES (?, ?, ?)`,
			doc.Name, fieldString(row, "mode_of_payment"), fieldFloat(row, "amount")); err != nil {
			return fmt.Errorf("failed to insert invoice payment: %w", err)
		}
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sales_team WHERE invoice = ?`, doc.Name); err != nil {
		return fmt.Errorf("failed to clear sales team: %w", err)
	}
	for _, row := range fieldRows(f, "sales_team") {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO sales_team (invoice, sales_person) VALUES (?, ?)`,
			doc.Name, fieldString(row, "sales_person")); err != nil {
			return fmt.Errorf("failed to insert sales team row: %w", err)
		}
	}
	return nil
}

func (db *DB) projectCustomer(ctx context.Context, doc *models.Document) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO customers (name, customer_name, mobile, enabled)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
			customer_name = excluded.customer_name,
			mobile = excluded.mobile,
			enabled = excluded.enabled`,
		doc.Name, fieldString(doc.Fields, "customer_name"),
		fieldString(doc.Fields, "mobile"), fieldBool(doc.Fields, "enabled", true))
	if err != nil {
		return fmt.Errorf("failed to project customer %s: %w", doc.Name, err)
	}
	return nil
}

func (db *DB) projectItem(ctx context.Context, doc *models.Document) error {
	uom := fieldString(doc.Fields, "uom")
	if uom == "" {
		uom = "Nos"
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO items (name, item_name, uom, low_stock_threshold, enabled)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
			item_name = excluded.item_name,
			uom = excluded.uom,
			low_stock_threshold = excluded.low_stock_threshold,
			enabled = excluded.enabled`,
		doc.Name, fieldString(doc.Fields, "item_name"), uom,
		fieldFloat(doc.Fields, "low_stock_threshold"), fieldBool(doc.Fields, "enabled", true))
	if err != nil {
		return fmt.Errorf("failed to project item %s: %w", doc.Name, err)
	}
	return nil
}

func (db *DB) projectBin(ctx context.Context, doc *models.Document) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO bins (item, warehouse, actual_qty)
		 VALUES (?, ?, ?)
		 ON CONFLICT (item, warehouse) DO UPDATE SET actual_qty = excluded.actual_qty`,
		fieldString(doc.Fields, "item"), fieldString(doc.Fields, "warehouse"),
		fieldFloat(doc.Fields, "actual_qty"))
	if err != nil {
		return fmt.Errorf("failed to project bin %s: %w", doc.Name, err)
	}
	return nil
}

// postLedgerEntries writes GL rows for accounting doctypes on submit.
func (db *DB) postLedgerEntries(ctx context.Context, doc *models.Document) error {
	switch doc.Doctype {
	case DoctypeSalesInvoice:
		return db.postSalesInvoiceGL(ctx, doc)
	case DoctypePaymentEntry:
		return db.postPaymentEntryGL(ctx, doc)
	}
	return nil
}

// postSalesInvoiceGL debits the receivable account against sales. The
// invoice itself is an accrual; the cash flow report excludes it.
func (db *DB) postSalesInvoiceGL(ctx context.Context, doc *models.Document) error {
	f := doc.Fields
	posting := fieldDate(f, "posting_date", time.Now())
	grand := fieldFloat(f, "grand_total")
	customer := fieldString(f, "customer")

	rows := []models.GLEntry{
		{Account: receivableAccount, Party: customer, PartyType: "Customer"},
		{Account: "Sales"},
	}
	for i, row := range rows {
		debit, credit := grand, 0.0
		if i == 1 {
			debit, credit = 0.0, grand
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO gl_entries (id, posting_date, account, debit, credit, voucher_type, voucher_no, party, party_type, remarks, docstatus)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			uuid.NewString(), posting, row.Account, debit, credit,
			DoctypeSalesInvoice, doc.Name, nullIfEmpty(row.Party), nullIfEmpty(row.PartyType),
			fieldString(f, "remarks")); err != nil {
			return fmt.Errorf("failed to post invoice GL entry: %w", err)
		}
	}
	return nil
}

// postPaymentEntryGL debits the cash/bank account named by paid_to and
// credits the receivable, reducing the referenced invoice's outstanding
// when one is given.
func (db *DB) postPaymentEntryGL(ctx context.Context, doc *models.Document) error {
	f := doc.Fields
	posting := fieldDate(f, "posting_date", time.Now())
	amount := fieldFloat(f, "paid_amount")
	paidTo := fieldString(f, "paid_to")
	party := fieldString(f, "party")
	mode := fieldString(f, "mode_of_payment")

	entries := []struct {
		account       string
		debit, credit float64
		party         string
	}{
		{paidTo, amount, 0, party},
		{receivableAccount, 0, amount, party},
	}
	for _, e := range entries {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO gl_entries (id, posting_date, account, debit, credit, voucher_type, voucher_no, party, party_type, mode_of_payment, remarks, docstatus)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'Customer', ?, ?, 1)`,
			uuid.NewString(), posting, e.account, e.debit, e.credit,
			DoctypePaymentEntry, doc.Name, nullIfEmpty(e.party), nullIfEmpty(mode),
			fieldString(f, "remarks")); err != nil {
			return fmt.Errorf("failed to post payment GL entry: %w", err)
		}
	}

	if invoice := fieldString(f, "reference_invoice"); invoice != "" {
		if _, err := db.conn.ExecContext(ctx,
			`UPDATE sales_invoices SET outstanding_amount = GREATEST(outstanding_amount - ?, 0) WHERE name = ?`,
			amount, invoice); err != nil {
			return fmt.Errorf("failed to reduce invoice outstanding: %w", err)
		}
	}
	return nil
}

// Field map helpers. Documents arrive as JSON, so numbers are float64
// and nested rows are []interface{} of maps.

func fieldString(f map[string]interface{}, key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

func fieldFloat(f map[string]interface{}, key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		fv, _ := v.Float64()
		return fv
	}
	return 0
}

func fieldBool(f map[string]interface{}, key string, def bool) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	}
	return def
}

func fieldDate(f map[string]interface{}, key string, def time.Time) time.Time {
	s, ok := f[key].(string)
	if !ok || s == "" {
		return def
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return def
}

func fieldRows(f map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := f[key].([]interface{})
	if !ok {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]interface{}); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
