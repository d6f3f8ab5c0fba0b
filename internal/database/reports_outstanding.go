// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/models"
)

// CustomerOutstanding returns each active customer's receivable balance
// as of the given date: the sum of debit minus credit across their
// ledger postings. Zero balances are omitted and the result is sorted
// by balance descending.
func (db *DB) CustomerOutstanding(ctx context.Context, asOf time.Time) (out []models.CustomerOutstandingRow, err error) {
	done := db.track("report", "gl_entries", time.Now())
	defer func() { done(err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.name, c.customer_name, COALESCE(c.mobile, ''),
		        COALESCE(SUM(gl.debit - gl.credit), 0) AS outstanding
		 FROM customers c
		 JOIN gl_entries gl
		   ON gl.party = c.name AND gl.party_type = 'Customer'
		  AND gl.docstatus = 1 AND NOT gl.is_cancelled
		  AND gl.posting_date <= CAST(? AS DATE)
		 WHERE c.enabled
		 GROUP BY c.name, c.customer_name, c.mobile
		 HAVING COALESCE(SUM(gl.debit - gl.credit), 0) <> 0
		 ORDER BY outstanding DESC, c.name`, asOf.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query customer outstanding: %w", err)
	}
	defer closeWithLog(rows, "outstanding rows")

	for rows.Next() {
		var (
			r           models.CustomerOutstandingRow
			mobile      sql.NullString
			outstanding float64
		)
		if err := rows.Scan(&r.Customer, &r.CustomerName, &mobile, &outstanding); err != nil {
			return nil, fmt.Errorf("failed to scan outstanding row: %w", err)
		}
		r.Mobile = mobile.String
		r.Outstanding = decimal.NewFromFloat(outstanding)
		out = append(out, r)
	}
	return out, rows.Err()
}
