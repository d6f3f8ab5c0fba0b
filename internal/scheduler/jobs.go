// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
jobs.go - Ledger Scan Jobs

The two background scans: overdue invoices and low stock. Each scan
notifies a configured audience of users and roles, once per finding.
The dedup tag ("Overdue", "Low Stock") lives in the notification
subject, so a document that was already reported is never reported
again, no matter how often the scan runs.
*/

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/notify"
)

// Job names, used for registration, metrics, and manual triggers.
const (
	JobOverdueInvoices = "overdue_invoices"
	JobLowStock        = "low_stock"
)

// Dedup tags embedded in notification subjects.
const (
	tagOverdue  = "Overdue"
	tagLowStock = "Low Stock"
)

const lowStockDoctype = "Bin"

// Jobs holds the concrete scan implementations.
type Jobs struct {
	db       *database.DB
	notifier *notify.Notifier
	cfg      config.SchedulerConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewJobs builds the scan jobs.
func NewJobs(db *database.DB, notifier *notify.Notifier, cfg config.SchedulerConfig) *Jobs {
	return &Jobs{
		db:       db,
		notifier: notifier,
		cfg:      cfg,
		log:      logging.Component("jobs"),
		now:      time.Now,
	}
}

// RegisterAll registers both scans on the scheduler with their
// configured cron expressions.
func (j *Jobs) RegisterAll(s *Scheduler) error {
	if err := s.Register(JobOverdueInvoices, j.cfg.OverdueSchedule, j.OverdueInvoices); err != nil {
		return err
	}
	return s.Register(JobLowStock, j.cfg.LowStockSchedule, j.LowStock)
}

// OverdueInvoices notifies the audience about submitted invoices whose
// due date has passed with money still outstanding.
func (j *Jobs) OverdueInvoices(ctx context.Context) error {
	invoices, err := j.db.ListOverdueInvoices(ctx, j.now())
	if err != nil {
		return fmt.Errorf("list overdue invoices: %w", err)
	}
	if len(invoices) == 0 {
		j.log.Debug().Msg("No overdue invoices found")
		return nil
	}

	audience, err := j.audience(ctx)
	if err != nil {
		return err
	}
	if len(audience) == 0 {
		return fmt.Errorf("overdue scan found %d invoices but the audience is empty", len(invoices))
	}

	notified := 0
	for i := range invoices {
		inv := &invoices[i]
		seen, err := j.db.HasNotification(ctx, "Sales Invoice", inv.Invoice, tagOverdue)
		if err != nil {
			return fmt.Errorf("check notification history for %s: %w", inv.Invoice, err)
		}
		if seen {
			continue
		}

		subject := fmt.Sprintf("Overdue: invoice %s (%s)", inv.Invoice, inv.CustomerName)
		message := fmt.Sprintf("Invoice %s for %s was due on %s and is %d day(s) overdue. Outstanding amount: %s.",
			inv.Invoice, inv.CustomerName, inv.DueDate.Format("2006-01-02"),
			inv.DaysOverdue, inv.Outstanding.StringFixed(2))

		j.notifier.NotifyAll(ctx, audience, notify.Delivery{
			Subject:      subject,
			Message:      message,
			Channel:      models.ChannelInApp,
			DocumentType: "Sales Invoice",
			DocumentName: inv.Invoice,
		})
		notified++
	}

	j.log.Info().
		Int("overdue", len(invoices)).
		Int("notified", notified).
		Int("audience", len(audience)).
		Msg("Overdue invoice scan finished")
	return nil
}

// LowStock notifies the audience about bins at or below their item's
// low stock threshold.
func (j *Jobs) LowStock(ctx context.Context) error {
	bins, err := j.db.ListLowStockBins(ctx)
	if err != nil {
		return fmt.Errorf("list low stock bins: %w", err)
	}
	if len(bins) == 0 {
		j.log.Debug().Msg("No low stock bins found")
		return nil
	}

	audience, err := j.audience(ctx)
	if err != nil {
		return err
	}
	if len(audience) == 0 {
		return fmt.Errorf("low stock scan found %d bins but the audience is empty", len(bins))
	}

	notified := 0
	for i := range bins {
		bin := &bins[i]
		key := bin.Item + "-" + bin.Warehouse
		seen, err := j.db.HasNotification(ctx, lowStockDoctype, key, tagLowStock)
		if err != nil {
			return fmt.Errorf("check notification history for %s: %w", key, err)
		}
		if seen {
			continue
		}

		subject := fmt.Sprintf("Low Stock: %s at %s", bin.ItemName, bin.Warehouse)
		message := fmt.Sprintf("Item %s (%s) is down to %s %s at %s, at or below the threshold of %s.",
			bin.ItemName, bin.Item, bin.ActualQty.String(), bin.UOM,
			bin.Warehouse, bin.Threshold.String())

		j.notifier.NotifyAll(ctx, audience, notify.Delivery{
			Subject:      subject,
			Message:      message,
			Channel:      models.ChannelInApp,
			DocumentType: lowStockDoctype,
			DocumentName: key,
		})
		notified++
	}

	j.log.Info().
		Int("low_stock", len(bins)).
		Int("notified", notified).
		Int("audience", len(audience)).
		Msg("Low stock scan finished")
	return nil
}

// audience expands the configured users and roles into a deduplicated,
// username-ordered set of enabled users.
func (j *Jobs) audience(ctx context.Context) ([]models.User, error) {
	seen := make(map[string]bool)
	var users []models.User

	add := func(u models.User) {
		if !u.Enabled || seen[u.Username] {
			return
		}
		seen[u.Username] = true
		users = append(users, u)
	}

	for _, username := range j.cfg.NotifyUsers {
		user, err := j.db.GetUser(ctx, username)
		if errors.Is(err, database.ErrNotFound) {
			j.log.Warn().Str("user", username).Msg("Configured audience user does not exist")
			continue
		}
		if err != nil {
			return nil, err
		}
		add(*user)
	}
	for _, role := range j.cfg.NotifyRoles {
		roleUsers, err := j.db.GetEnabledUsersByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, u := range roleUsers {
			add(u)
		}
	}

	sort.Slice(users, func(i, k int) bool { return users[i].Username < users[k].Username })
	return users, nil
}
