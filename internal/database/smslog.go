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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/models"
)

// InsertSMSLog records one gateway send attempt.
func (db *DB) InsertSMSLog(ctx context.Context, l *models.SMSLog) (err error) {
	done := db.track("insert", "sms_log", time.Now())
	defer func() { done(err) }()

	l.ID = uuid.NewString()
	if l.SentOn.IsZero() {
		l.SentOn = time.Now().UTC()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO sms_log (id, sent_on, message, requested_count, sent_count, recipients, status, vendor_response, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SentOn, l.Message, l.RequestedCount, l.SentCount,
		strings.Join(l.Recipients, ","), l.Status,
		nullIfEmpty(l.VendorResponse), nullIfEmpty(l.Error))
	if err != nil {
		return fmt.Errorf("failed to insert sms log: %w", err)
	}
	return nil
}

// GetSMSLog loads one log entry by ID.
func (db *DB) GetSMSLog(ctx context.Context, id string) (*models.SMSLog, error) {
	var (
		l                models.SMSLog
		recipients       sql.NullString
		vendorResp, serr sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT CAST(id AS VARCHAR), sent_on, message, requested_count, sent_count, recipients, status, vendor_response, error
		 FROM sms_log WHERE id = ?`, id).
		Scan(&l.ID, &l.SentOn, &l.Message, &l.RequestedCount, &l.SentCount,
			&recipients, &l.Status, &vendorResp, &serr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sms log %s: %w", id, err)
	}
	if recipients.String != "" {
		l.Recipients = strings.Split(recipients.String, ",")
	}
	l.VendorResponse = vendorResp.String
	l.Error = serr.String
	return &l, nil
}

// ListSMSLogs returns the newest log entries.
func (db *DB) ListSMSLogs(ctx context.Context, limit int) ([]models.SMSLog, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT CAST(id AS VARCHAR), sent_on, message, requested_count, sent_count, recipients, status, vendor_response, error
		 FROM sms_log ORDER BY sent_on DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sms logs: %w", err)
	}
	defer closeWithLog(rows, "sms log rows")

	var out []models.SMSLog
	for rows.Next() {
		var (
			l                models.SMSLog
			recipients       sql.NullString
			vendorResp, serr sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.SentOn, &l.Message, &l.RequestedCount, &l.SentCount,
			&recipients, &l.Status, &vendorResp, &serr); err != nil {
			return nil, fmt.Errorf("failed to scan sms log row: %w", err)
		}
		if recipients.String != "" {
			l.Recipients = strings.Split(recipients.String, ",")
		}
		l.VendorResponse = vendorResp.String
		l.Error = serr.String
		out = append(out, l)
	}
	return out, rows.Err()
}
