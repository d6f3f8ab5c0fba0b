// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowFilters narrows the daily cash flow report.
type CashFlowFilters struct {
	FromDate      time.Time
	ToDate        time.Time
	Account       string
	VoucherType   string
	Party         string
	ModeOfPayment string
}

// CashFlowRow is one line of the daily cash flow report. The first row
// is the opening balance and the last the closing balance; both carry
// IsTotal.
type CashFlowRow struct {
	PostingDate   string          `json:"posting_date,omitempty"`
	Account       string          `json:"account,omitempty"`
	VoucherType   string          `json:"voucher_type,omitempty"`
	VoucherNo     string          `json:"voucher_no,omitempty"`
	Party         string          `json:"party,omitempty"`
	ModeOfPayment string          `json:"mode_of_payment,omitempty"`
	Remarks       string          `json:"remarks,omitempty"`
	CashIn        decimal.Decimal `json:"cash_in"`
	CashOut       decimal.Decimal `json:"cash_out"`
	Balance       decimal.Decimal `json:"balance"`
	Label         string          `json:"label,omitempty"`
	IsTotal       bool            `json:"is_total,omitempty"`
}

// CashFlowSummary totals the report window.
type CashFlowSummary struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalCashIn    decimal.Decimal `json:"total_cash_in"`
	TotalCashOut   decimal.Decimal `json:"total_cash_out"`
	NetCashFlow    decimal.Decimal `json:"net_cash_flow"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// VoucherTypeSummary aggregates cash movement per voucher type.
type VoucherTypeSummary struct {
	VoucherType string          `json:"voucher_type"`
	Count       int             `json:"count"`
	CashIn      decimal.Decimal `json:"cash_in"`
	CashOut     decimal.Decimal `json:"cash_out"`
	Net         decimal.Decimal `json:"net"`
}

// PartyCashSummary is one entry of the top cash sources list.
type PartyCashSummary struct {
	Party  string          `json:"party"`
	CashIn decimal.Decimal `json:"cash_in"`
}

// ChartSeries is a label/dataset pair for report charts.
type ChartSeries struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset is one named series of values.
type ChartDataset struct {
	Name   string            `json:"name"`
	Values []decimal.Decimal `json:"values"`
}

// CashFlowReport is the full daily cash flow payload.
type CashFlowReport struct {
	Rows           []CashFlowRow        `json:"rows"`
	Summary        CashFlowSummary      `json:"summary"`
	Chart          ChartSeries          `json:"chart"`
	VoucherSummary []VoucherTypeSummary `json:"voucher_summary"`
	TopCashSources []PartyCashSummary   `json:"top_cash_sources"`
}

// DailySalesFilters narrows the daily sales report.
type DailySalesFilters struct {
	FromDate        time.Time
	ToDate          time.Time
	Customer        string
	ShowOutstanding bool
}

// DailySalesRow is one submitted invoice in the daily sales report.
// PaymentModes and SalesPersons are comma-joined aggregates over the
// invoice's child rows.
type DailySalesRow struct {
	PostingDate  string          `json:"posting_date"`
	Invoice      string          `json:"invoice"`
	Customer     string          `json:"customer"`
	CustomerName string          `json:"customer_name"`
	PaymentModes string          `json:"payment_modes,omitempty"`
	SalesPersons string          `json:"sales_persons,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Paid         decimal.Decimal `json:"paid"`
	Outstanding  decimal.Decimal `json:"outstanding,omitempty"`
}

// CustomerSalesTotal is one entry of the top customers list.
type CustomerSalesTotal struct {
	Customer     string          `json:"customer"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
}

// DailySalesReport is the full daily sales payload.
type DailySalesReport struct {
	Rows         []DailySalesRow      `json:"rows"`
	Chart        ChartSeries          `json:"chart"`
	TopCustomers []CustomerSalesTotal `json:"top_customers"`
}

// AgingRow buckets a customer's outstanding by invoice age.
type AgingRow struct {
	Customer     string          `json:"customer"`
	CustomerName string          `json:"customer_name"`
	Current      decimal.Decimal `json:"bucket_0_30"`
	Days31to60   decimal.Decimal `json:"bucket_31_60"`
	Days61to90   decimal.Decimal `json:"bucket_61_90"`
	Over90       decimal.Decimal `json:"bucket_over_90"`
	Total        decimal.Decimal `json:"total"`
}

// CustomerOutstandingRow is a customer's receivable balance as of the
// report date. Nonzero balances only, sorted descending.
type CustomerOutstandingRow struct {
	Customer     string          `json:"customer"`
	CustomerName string          `json:"customer_name"`
	Mobile       string          `json:"mobile,omitempty"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}
