// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/models"
)

// ListOverdueInvoices returns submitted invoices with outstanding above
// zero whose due date is strictly before asOf's date.
func (db *DB) ListOverdueInvoices(ctx context.Context, asOf time.Time) (out []models.OverdueInvoice, err error) {
	done := db.track("select", "sales_invoices", time.Now())
	defer func() { done(err) }()

	day := asOf.Format("2006-01-02")
	rows, err := db.conn.QueryContext(ctx,
		`SELECT si.name, si.customer, COALESCE(c.customer_name, si.customer), si.due_date,
		        DATEDIFF('day', si.due_date, CAST(? AS DATE)), si.outstanding_amount
		 FROM sales_invoices si
		 LEFT JOIN customers c ON c.name = si.customer
		 WHERE si.docstatus = 1
		   AND si.outstanding_amount > 0
		   AND si.due_date < CAST(? AS DATE)
		 ORDER BY si.due_date`, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue invoices: %w", err)
	}
	defer closeWithLog(rows, "overdue invoice rows")

	for rows.Next() {
		var (
			inv         models.OverdueInvoice
			outstanding float64
		)
		if err := rows.Scan(&inv.Invoice, &inv.Customer, &inv.CustomerName,
			&inv.DueDate, &inv.DaysOverdue, &outstanding); err != nil {
			return nil, fmt.Errorf("failed to scan overdue invoice row: %w", err)
		}
		inv.Outstanding = decimal.NewFromFloat(outstanding)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListLowStockBins returns bins whose quantity is above zero but at or
// below the owning item's threshold. Disabled items and warehouses are
// skipped, as are items with no threshold configured.
func (db *DB) ListLowStockBins(ctx context.Context) (out []models.LowStockBin, err error) {
	done := db.track("select", "bins", time.Now())
	defer func() { done(err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT b.item, i.item_name, b.warehouse, b.actual_qty, i.low_stock_threshold, i.uom
		 FROM bins b
		 JOIN items i ON i.name = b.item
		 JOIN warehouses w ON w.name = b.warehouse
		 WHERE i.enabled AND w.enabled
		   AND i.low_stock_threshold > 0
		   AND b.actual_qty > 0
		   AND b.actual_qty <= i.low_stock_threshold
		 ORDER BY b.item, b.warehouse`)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock bins: %w", err)
	}
	defer closeWithLog(rows, "low stock rows")

	for rows.Next() {
		var (
			bin            models.LowStockBin
			qty, threshold float64
		)
		if err := rows.Scan(&bin.Item, &bin.ItemName, &bin.Warehouse, &qty, &threshold, &bin.UOM); err != nil {
			return nil, fmt.Errorf("failed to scan low stock row: %w", err)
		}
		bin.ActualQty = decimal.NewFromFloat(qty)
		bin.Threshold = decimal.NewFromFloat(threshold)
		out = append(out, bin)
	}
	return out, rows.Err()
}
