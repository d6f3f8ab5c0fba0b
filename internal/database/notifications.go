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

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/models"
)

// InsertNotificationLog writes one notification entry and fills in the
// generated ID and timestamp.
func (db *DB) InsertNotificationLog(ctx context.Context, n *models.NotificationLog) (err error) {
	done := db.track("insert", "notification_log", time.Now())
	defer func() { done(err) }()

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notification_log (id, subject, message, for_user, channel, document_type, document_name, from_user, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)`,
		n.ID, n.Subject, nullIfEmpty(n.Message), n.ForUser, n.Channel,
		nullIfEmpty(n.DocumentType), nullIfEmpty(n.DocumentName), nullIfEmpty(n.FromUser), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification log: %w", err)
	}
	return nil
}

// ListNotificationsForUser returns the newest notifications for a user.
func (db *DB) ListNotificationsForUser(ctx context.Context, username string, limit int) ([]models.NotificationLog, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT CAST(id AS VARCHAR), subject, message, for_user, channel, document_type, document_name, from_user, is_read, created_at
		 FROM notification_log
		 WHERE for_user = ?
		 ORDER BY created_at DESC
		 LIMIT ?`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications for %s: %w", username, err)
	}
	defer closeWithLog(rows, "notification rows")

	var out []models.NotificationLog
	for rows.Next() {
		var (
			n                         models.NotificationLog
			message, docType, docName sql.NullString
			fromUser                  sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Subject, &message, &n.ForUser, &n.Channel,
			&docType, &docName, &fromUser, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		n.Message = message.String
		n.DocumentType = docType.String
		n.DocumentName = docName.String
		n.FromUser = fromUser.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks one notification read and returns its
// owner.
func (db *DB) MarkNotificationRead(ctx context.Context, id string) (string, error) {
	var owner string
	err := db.conn.QueryRowContext(ctx,
		`SELECT for_user FROM notification_log WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load notification %s: %w", id, err)
	}
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE notification_log SET is_read = TRUE WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("failed to mark notification read: %w", err)
	}
	return owner, nil
}

// HasNotification reports whether any notification was ever recorded
// for the document with a subject containing the given tag. Scheduled
// jobs use this to avoid notifying twice for the same finding.
func (db *DB) HasNotification(ctx context.Context, docType, docName, subjectTag string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_log
		 WHERE document_type = ? AND document_name = ? AND subject LIKE '%' || ? || '%'`,
		docType, docName, subjectTag).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check notification history: %w", err)
	}
	return count > 0, nil
}
