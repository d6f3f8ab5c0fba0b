// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/notify"
)

func newTestJobs(t *testing.T) (*Jobs, *database.DB) {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, u := range []models.User{
		{Username: "alice", FullName: "Alice A", Role: "Accounts Manager", Enabled: true},
		{Username: "bob", FullName: "Bob B", Role: "Cashier", Enabled: true},
	} {
		user := u
		if err := db.UpsertUser(context.Background(), &user); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	cfg := config.SchedulerConfig{
		Enabled:     true,
		NotifyRoles: []string{"Accounts Manager"},
	}
	return NewJobs(db, notify.NewNotifier(db, nil, nil, nil), cfg), db
}

func seedOverdueInvoice(t *testing.T, db *database.DB, name string, daysLate int, outstanding float64) {
	t.Helper()
	ctx := context.Background()

	customer := &models.Document{
		Doctype: database.DoctypeCustomer,
		Name:    "CUST-ACME",
		Fields: map[string]interface{}{
			"customer_name": "Acme Traders",
			"enabled":       true,
		},
	}
	if _, err := db.SaveDocument(ctx, customer); err != nil {
		t.Fatalf("save customer: %v", err)
	}

	due := time.Now().AddDate(0, 0, -daysLate).Format("2006-01-02")
	invoice := &models.Document{
		Doctype: database.DoctypeSalesInvoice,
		Name:    name,
		Fields: map[string]interface{}{
			"customer":           "CUST-ACME",
			"posting_date":       due,
			"due_date":           due,
			"grand_total":        outstanding,
			"outstanding_amount": outstanding,
		},
	}
	if _, err := db.SaveDocument(ctx, invoice); err != nil {
		t.Fatalf("save invoice: %v", err)
	}
	if _, err := db.SubmitDocument(ctx, database.DoctypeSalesInvoice, name, "tester"); err != nil {
		t.Fatalf("submit invoice: %v", err)
	}
}

func seedLowStockBin(t *testing.T, db *database.DB, item, warehouse string, qty, threshold float64) {
	t.Helper()
	ctx := context.Background()

	itemDoc := &models.Document{
		Doctype: database.DoctypeItem,
		Name:    item,
		Fields: map[string]interface{}{
			"item_name":           item + " Widget",
			"uom":                 "Nos",
			"low_stock_threshold": threshold,
			"enabled":             true,
		},
	}
	if _, err := db.SaveDocument(ctx, itemDoc); err != nil {
		t.Fatalf("save item: %v", err)
	}

	if _, err := db.Conn().ExecContext(ctx,
		`INSERT INTO warehouses (name, enabled) VALUES (?, TRUE) ON CONFLICT (name) DO NOTHING`,
		warehouse); err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}

	binDoc := &models.Document{
		Doctype: database.DoctypeBin,
		Name:    item + "-" + warehouse,
		Fields: map[string]interface{}{
			"item":       item,
			"warehouse":  warehouse,
			"actual_qty": qty,
		},
	}
	if _, err := db.SaveDocument(ctx, binDoc); err != nil {
		t.Fatalf("save bin: %v", err)
	}
}

func TestOverdueInvoicesJobNotifiesOnce(t *testing.T) {
	jobs, db := newTestJobs(t)
	seedOverdueInvoice(t, db, "SINV-0001", 10, 450.50)

	if err := jobs.OverdueInvoices(context.Background()); err != nil {
		t.Fatalf("OverdueInvoices() error = %v", err)
	}

	logs, err := db.ListNotificationsForUser(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(logs))
	}
	if !strings.Contains(logs[0].Subject, "Overdue") || !strings.Contains(logs[0].Subject, "SINV-0001") {
		t.Errorf("subject = %q", logs[0].Subject)
	}
	if !strings.Contains(logs[0].Message, "450.50") {
		t.Errorf("message = %q", logs[0].Message)
	}
	if logs[0].DocumentName != "SINV-0001" {
		t.Errorf("document name = %q", logs[0].DocumentName)
	}

	// A cashier is not in the audience.
	if logs, _ := db.ListNotificationsForUser(context.Background(), "bob", 10); len(logs) != 0 {
		t.Errorf("bob should not be notified, got %d", len(logs))
	}

	// Running the scan again must not notify twice.
	if err := jobs.OverdueInvoices(context.Background()); err != nil {
		t.Fatalf("second OverdueInvoices() error = %v", err)
	}
	if logs, _ := db.ListNotificationsForUser(context.Background(), "alice", 10); len(logs) != 1 {
		t.Fatalf("rescan duplicated notifications: got %d", len(logs))
	}
}

func TestOverdueInvoicesJobSkipsCurrentInvoices(t *testing.T) {
	jobs, db := newTestJobs(t)
	seedOverdueInvoice(t, db, "SINV-0002", -5, 100) // due in the future

	if err := jobs.OverdueInvoices(context.Background()); err != nil {
		t.Fatalf("OverdueInvoices() error = %v", err)
	}
	if logs, _ := db.ListNotificationsForUser(context.Background(), "alice", 10); len(logs) != 0 {
		t.Fatalf("future-due invoice should not notify, got %d", len(logs))
	}
}

func TestLowStockJobNotifiesOnce(t *testing.T) {
	jobs, db := newTestJobs(t)
	seedLowStockBin(t, db, "ITM-001", "Main Store", 3, 10)
	seedLowStockBin(t, db, "ITM-002", "Main Store", 50, 10) // healthy

	if err := jobs.LowStock(context.Background()); err != nil {
		t.Fatalf("LowStock() error = %v", err)
	}

	logs, err := db.ListNotificationsForUser(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(logs))
	}
	if !strings.Contains(logs[0].Subject, "Low Stock") {
		t.Errorf("subject = %q", logs[0].Subject)
	}
	if logs[0].DocumentName != "ITM-001-Main Store" {
		t.Errorf("document name = %q", logs[0].DocumentName)
	}

	if err := jobs.LowStock(context.Background()); err != nil {
		t.Fatalf("second LowStock() error = %v", err)
	}
	if logs, _ := db.ListNotificationsForUser(context.Background(), "alice", 10); len(logs) != 1 {
		t.Fatalf("rescan duplicated notifications: got %d", len(logs))
	}
}

func TestJobsEmptyAudienceFails(t *testing.T) {
	jobs, db := newTestJobs(t)
	jobs.cfg.NotifyRoles = []string{"No Such Role"}
	seedOverdueInvoice(t, db, "SINV-0003", 3, 75)

	if err := jobs.OverdueInvoices(context.Background()); err == nil {
		t.Fatal("scan with findings but no audience should fail")
	}
}

func TestRegisterAll(t *testing.T) {
	jobs, _ := newTestJobs(t)
	jobs.cfg.OverdueSchedule = "0 9 * * *"
	jobs.cfg.LowStockSchedule = "30 8 * * *"

	s := New(testSchedulerConfig())
	if err := jobs.RegisterAll(s); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	statuses := s.Jobs()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(statuses))
	}
	if statuses[0].Name != JobOverdueInvoices || statuses[1].Name != JobLowStock {
		t.Errorf("job order = %s, %s", statuses[0].Name, statuses[1].Name)
	}
}
