// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
reports_dailysale.go - Daily Sales Report

Submitted sales invoices in a date window, one row per invoice with
comma-joined payment modes and sales persons from the child tables.
Paid is grand total minus outstanding. The chart aggregates per-day
sales and discount; the top customers list ranks by invoiced total. The
outstanding summary buckets each customer's open invoices into 0-30,
31-60, 61-90 and over-90 day aging bands.
*/

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/models"
)

// DailySales computes the daily sales report.
func (db *DB) DailySales(ctx context.Context, filters models.DailySalesFilters) (report *models.DailySalesReport, err error) {
	done := db.track("report", "sales_invoices", time.Now())
	defer func() { done(err) }()

	query := `
		SELECT si.posting_date, si.name, si.customer,
		       COALESCE(c.customer_name, si.customer),
		       COALESCE((SELECT string_agg(DISTINCT ip.mode_of_payment, ', ') FROM invoice_payments ip WHERE ip.invoice = si.name), ''),
		       COALESCE((SELECT string_agg(DISTINCT st.sales_person, ', ') FROM sales_team st WHERE st.invoice = si.name), ''),
		       si.discount_amount, si.grand_total, si.outstanding_amount
		FROM sales_invoices si
		LEFT JOIN customers c ON c.name = si.customer
		WHERE si.docstatus = 1
		  AND si.posting_date BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)`
	args := []interface{}{
		filters.FromDate.Format("2006-01-02"),
		filters.ToDate.Format("2006-01-02"),
	}
	if filters.Customer != "" {
		query += ` AND si.customer = ?`
		args = append(args, filters.Customer)
	}
	query += ` ORDER BY si.posting_date, si.name`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}
	defer closeWithLog(rows, "daily sales rows")

	report = &models.DailySalesReport{Rows: []models.DailySalesRow{}}

	var (
		daily     = map[string][2]decimal.Decimal{} // total, discount
		dayOrder  []string
		customers = map[string]*models.CustomerSalesTotal{}
	)

	for rows.Next() {
		var (
			r                            models.DailySalesRow
			postingDate                  time.Time
			discount, grand, outstanding float64
		)
		if err := rows.Scan(&postingDate, &r.Invoice, &r.Customer, &r.CustomerName,
			&r.PaymentModes, &r.SalesPersons, &discount, &grand, &outstanding); err != nil {
			return nil, fmt.Errorf("failed to scan daily sales row: %w", err)
		}
		r.PostingDate = postingDate.Format("2006-01-02")
		r.Discount = decimal.NewFromFloat(discount)
		r.GrandTotal = decimal.NewFromFloat(grand)
		r.Paid = r.GrandTotal.Sub(decimal.NewFromFloat(outstanding))
		if filters.ShowOutstanding {
			r.Outstanding = decimal.NewFromFloat(outstanding)
		}

		if _, seen := daily[r.PostingDate]; !seen {
			dayOrder = append(dayOrder, r.PostingDate)
		}
		d := daily[r.PostingDate]
		daily[r.PostingDate] = [2]decimal.Decimal{d[0].Add(r.GrandTotal), d[1].Add(r.Discount)}

		ct := customers[r.Customer]
		if ct == nil {
			ct = &models.CustomerSalesTotal{Customer: r.Customer, CustomerName: r.CustomerName}
			customers[r.Customer] = ct
		}
		ct.Total = ct.Total.Add(r.GrandTotal)

		report.Rows = append(report.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.Chart = models.ChartSeries{
		Labels: dayOrder,
		Datasets: []models.ChartDataset{
			{Name: "Sales"},
			{Name: "Discount"},
		},
	}
	if report.Chart.Labels == nil {
		report.Chart.Labels = []string{}
	}
	for _, day := range dayOrder {
		report.Chart.Datasets[0].Values = append(report.Chart.Datasets[0].Values, daily[day][0])
		report.Chart.Datasets[1].Values = append(report.Chart.Datasets[1].Values, daily[day][1])
	}

	for _, ct := range customers {
		report.TopCustomers = append(report.TopCustomers, *ct)
	}
	sort.Slice(report.TopCustomers, func(i, j int) bool {
		if report.TopCustomers[i].Total.Equal(report.TopCustomers[j].Total) {
			return report.TopCustomers[i].Customer < report.TopCustomers[j].Customer
		}
		return report.TopCustomers[i].Total.GreaterThan(report.TopCustomers[j].Total)
	})
	if len(report.TopCustomers) > 10 {
		report.TopCustomers = report.TopCustomers[:10]
	}

	return report, nil
}

// SalesOutstandingAging buckets every open submitted invoice into aging
// bands by days since posting, grouped per customer. Customers with no
// outstanding are omitted.
func (db *DB) SalesOutstandingAging(ctx context.Context, asOf time.Time) (out []models.AgingRow, err error) {
	done := db.track("report", "sales_invoices", time.Now())
	defer func() { done(err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT si.customer, COALESCE(c.customer_name, si.customer),
		        DATEDIFF('day', si.posting_date, CAST(? AS DATE)), si.outstanding_amount
		 FROM sales_invoices si
		 LEFT JOIN customers c ON c.name = si.customer
		 WHERE si.docstatus = 1 AND si.outstanding_amount > 0
		 ORDER BY si.customer`, asOf.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding aging: %w", err)
	}
	defer closeWithLog(rows, "aging rows")

	byCustomer := map[string]*models.AgingRow{}
	var order []string
	for rows.Next() {
		var (
			customer, customerName string
			age                    int
			outstanding            float64
		)
		if err := rows.Scan(&customer, &customerName, &age, &outstanding); err != nil {
			return nil, fmt.Errorf("failed to scan aging row: %w", err)
		}

		row := byCustomer[customer]
		if row == nil {
			row = &models.AgingRow{Customer: customer, CustomerName: customerName}
			byCustomer[customer] = row
			order = append(order, customer)
		}

		amount := decimal.NewFromFloat(outstanding)
		switch {
		case age <= 30:
			row.Current = row.Current.Add(amount)
		case age <= 60:
			row.Days31to60 = row.Days31to60.Add(amount)
		case age <= 90:
			row.Days61to90 = row.Days61to90.Add(amount)
		default:
			row.Over90 = row.Over90.Add(amount)
		}
		row.Total = row.Total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, customer := range order {
		out = append(out, *byCustomer[customer])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Equal(out[j].Total) {
			return out[i].Customer < out[j].Customer
		}
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out, nil
}
