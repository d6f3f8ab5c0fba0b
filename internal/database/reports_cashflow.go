// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
reports_cashflow.go - Daily Cash Flow Report

Rows are general ledger postings limited to cash and bank accounts,
submitted and not cancelled. Sales Invoice and Purchase Invoice vouchers
are excluded: they are accruals, the cash moves with the payment
voucher. The report renders an opening balance row, the transaction rows
with a running balance, and a closing balance row, plus summary totals,
a per-day chart, a per-voucher-type summary, and the top ten cash
sources by party.
*/

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/models"
)

// Voucher types excluded from the cash flow: accrual documents whose
// cash effect arrives with a payment voucher.
var cashFlowExcludedVouchers = []string{"Sales Invoice", "Purchase Invoice"}

// DailyCashFlow computes the daily cash flow report.
func (db *DB) DailyCashFlow(ctx context.Context, filters models.CashFlowFilters) (report *models.CashFlowReport, err error) {
	done := db.track("report", "gl_entries", time.Now())
	defer func() { done(err) }()

	accounts, err := db.cashAccounts(ctx, filters.Account)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return &models.CashFlowReport{
			Rows:  []models.CashFlowRow{},
			Chart: models.ChartSeries{Labels: []string{}},
		}, nil
	}

	opening, err := db.cashOpeningBalance(ctx, accounts, filters)
	if err != nil {
		return nil, err
	}

	where, args := cashFlowConditions(accounts, filters, true)
	query := fmt.Sprintf(
		`SELECT posting_date, account, voucher_type, voucher_no,
		        COALESCE(party, ''), COALESCE(mode_of_payment, ''), COALESCE(remarks, ''),
		        debit, credit
		 FROM gl_entries
		 WHERE %s
		 ORDER BY posting_date, created_at`, where)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flow entries: %w", err)
	}
	defer closeWithLog(rows, "cash flow rows")

	report = &models.CashFlowReport{
		Summary: models.CashFlowSummary{OpeningBalance: opening},
	}
	report.Rows = append(report.Rows, models.CashFlowRow{
		Label:   "Opening Balance",
		Balance: opening,
		IsTotal: true,
	})

	var (
		balance      = opening
		totalIn      = decimal.Zero
		totalOut     = decimal.Zero
		daily        = map[string][2]decimal.Decimal{}
		dayOrder     []string
		voucherStats = map[string]*models.VoucherTypeSummary{}
		partyIn      = map[string]decimal.Decimal{}
	)

	for rows.Next() {
		var (
			r             models.CashFlowRow
			postingDate   time.Time
			debit, credit float64
		)
		if err := rows.Scan(&postingDate, &r.Account, &r.VoucherType, &r.VoucherNo,
			&r.Party, &r.ModeOfPayment, &r.Remarks, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow row: %w", err)
		}
		r.PostingDate = postingDate.Format("2006-01-02")
		r.CashIn = decimal.NewFromFloat(debit)
		r.CashOut = decimal.NewFromFloat(credit)

		balance = balance.Add(r.CashIn).Sub(r.CashOut)
		r.Balance = balance
		totalIn = totalIn.Add(r.CashIn)
		totalOut = totalOut.Add(r.CashOut)

		if _, seen := daily[r.PostingDate]; !seen {
			dayOrder = append(dayOrder, r.PostingDate)
		}
		d := daily[r.PostingDate]
		daily[r.PostingDate] = [2]decimal.Decimal{d[0].Add(r.CashIn), d[1].Add(r.CashOut)}

		vs := voucherStats[r.VoucherType]
		if vs == nil {
			vs = &models.VoucherTypeSummary{VoucherType: r.VoucherType}
			voucherStats[r.VoucherType] = vs
		}
		vs.Count++
		vs.CashIn = vs.CashIn.Add(r.CashIn)
		vs.CashOut = vs.CashOut.Add(r.CashOut)

		if r.Party != "" && r.CashIn.IsPositive() {
			partyIn[r.Party] = partyIn[r.Party].Add(r.CashIn)
		}

		report.Rows = append(report.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.Rows = append(report.Rows, models.CashFlowRow{
		Label:   "Closing Balance",
		Balance: balance,
		IsTotal: true,
	})
	report.Summary.TotalCashIn = totalIn
	report.Summary.TotalCashOut = totalOut
	report.Summary.NetCashFlow = totalIn.Sub(totalOut)
	report.Summary.ClosingBalance = balance

	report.Chart = models.ChartSeries{
		Labels: dayOrder,
		Datasets: []models.ChartDataset{
			{Name: "Cash In"},
			{Name: "Cash Out"},
		},
	}
	if report.Chart.Labels == nil {
		report.Chart.Labels = []string{}
	}
	for _, day := range dayOrder {
		report.Chart.Datasets[0].Values = append(report.Chart.Datasets[0].Values, daily[day][0])
		report.Chart.Datasets[1].Values = append(report.Chart.Datasets[1].Values, daily[day][1])
	}

	for _, vs := range voucherStats {
		vs.Net = vs.CashIn.Sub(vs.CashOut)
		report.VoucherSummary = append(report.VoucherSummary, *vs)
	}
	sort.Slice(report.VoucherSummary, func(i, j int) bool {
		return report.VoucherSummary[i].VoucherType < report.VoucherSummary[j].VoucherType
	})

	for party, in := range partyIn {
		report.TopCashSources = append(report.TopCashSources, models.PartyCashSummary{Party: party, CashIn: in})
	}
	sort.Slice(report.TopCashSources, func(i, j int) bool {
		if report.TopCashSources[i].CashIn.Equal(report.TopCashSources[j].CashIn) {
			return report.TopCashSources[i].Party < report.TopCashSources[j].Party
		}
		return report.TopCashSources[i].CashIn.GreaterThan(report.TopCashSources[j].CashIn)
	})
	if len(report.TopCashSources) > 10 {
		report.TopCashSources = report.TopCashSources[:10]
	}

	return report, nil
}

// cashAccounts resolves the cash and bank accounts, or validates the
// explicit account filter.
func (db *DB) cashAccounts(ctx context.Context, filter string) ([]string, error) {
	if filter != "" {
		return []string{filter}, nil
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name FROM accounts WHERE enabled AND account_type IN ('Cash', 'Bank') ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cash accounts: %w", err)
	}
	defer closeWithLog(rows, "account rows")

	var accounts []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, name)
	}
	return accounts, rows.Err()
}

// cashOpeningBalance sums debit-credit before the window start under
// the same account and voucher exclusions.
func (db *DB) cashOpeningBalance(ctx context.Context, accounts []string, filters models.CashFlowFilters) (decimal.Decimal, error) {
	where, args := cashFlowConditions(accounts, filters, false)
	args = append(args, filters.FromDate.Format("2006-01-02"))

	var balance float64
	err := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COALESCE(SUM(debit - credit), 0) FROM gl_entries WHERE %s AND posting_date < CAST(? AS DATE)`, where),
		args...).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute opening balance: %w", err)
	}
	return decimal.NewFromFloat(balance), nil
}

// cashFlowConditions builds the shared WHERE clause. withWindow adds
// the posting date range.
func cashFlowConditions(accounts []string, filters models.CashFlowFilters, withWindow bool) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	conds = append(conds, "docstatus = 1", "NOT is_cancelled")

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(accounts)), ", ")
	conds = append(conds, fmt.Sprintf("account IN (%s)", placeholders))
	for _, a := range accounts {
		args = append(args, a)
	}

	placeholders = strings.TrimSuffix(strings.Repeat("?, ", len(cashFlowExcludedVouchers)), ", ")
	conds = append(conds, fmt.Sprintf("voucher_type NOT IN (%s)", placeholders))
	for _, v := range cashFlowExcludedVouchers {
		args = append(args, v)
	}

	if filters.VoucherType != "" {
		conds = append(conds, "voucher_type = ?")
		args = append(args, filters.VoucherType)
	}
	if filters.Party != "" {
		conds = append(conds, "party = ?")
		args = append(args, filters.Party)
	}
	if filters.ModeOfPayment != "" {
		conds = append(conds, "mode_of_payment = ?")
		args = append(args, filters.ModeOfPayment)
	}
	if withWindow {
		conds = append(conds, "posting_date BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)")
		args = append(args, filters.FromDate.Format("2006-01-02"), filters.ToDate.Format("2006-01-02"))
	}

	return strings.Join(conds, " AND "), args
}
