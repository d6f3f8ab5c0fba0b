// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GLEntry is one general ledger posting row.
type GLEntry struct {
	ID            string          `json:"id"`
	PostingDate   time.Time       `json:"posting_date"`
	Account       string          `json:"account"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	VoucherType   string          `json:"voucher_type"`
	VoucherNo     string          `json:"voucher_no"`
	Party         string          `json:"party,omitempty"`
	PartyType     string          `json:"party_type,omitempty"`
	ModeOfPayment string          `json:"mode_of_payment,omitempty"`
	Remarks       string          `json:"remarks,omitempty"`
	IsCancelled   bool            `json:"is_cancelled"`
	Docstatus     int             `json:"docstatus"`
}

// SalesInvoice is the ledger projection of a Sales Invoice document.
type SalesInvoice struct {
	Name           string          `json:"name"`
	Customer       string          `json:"customer"`
	CustomerName   string          `json:"customer_name"`
	PostingDate    time.Time       `json:"posting_date"`
	DueDate        time.Time       `json:"due_date"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Outstanding    decimal.Decimal `json:"outstanding_amount"`
	Docstatus      int             `json:"docstatus"`
}

// OverdueInvoice is one hit of the overdue invoices scan.
type OverdueInvoice struct {
	Invoice      string          `json:"invoice"`
	Customer     string          `json:"customer"`
	CustomerName string          `json:"customer_name"`
	DueDate      time.Time       `json:"due_date"`
	DaysOverdue  int             `json:"days_overdue"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// LowStockBin is one hit of the low stock scan: a bin whose actual
// quantity is above zero but at or below the item's threshold.
type LowStockBin struct {
	Item      string          `json:"item"`
	ItemName  string          `json:"item_name"`
	Warehouse string          `json:"warehouse"`
	ActualQty decimal.Decimal `json:"actual_qty"`
	Threshold decimal.Decimal `json:"threshold"`
	UOM       string          `json:"uom"`
}
