// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/models"
)

// ListRulesForEvent returns the enabled rules matching a doctype and
// trigger event, recipients included.
func (db *DB) ListRulesForEvent(ctx context.Context, doctype, event string) ([]models.NotificationRule, error) {
	return db.queryRules(ctx,
		`SELECT CAST(id AS VARCHAR), name, enabled, doctype, trigger_event, condition, subject_template, message_template, channel, created_at, updated_at
		 FROM notification_rules
		 WHERE enabled AND doctype = ? AND trigger_event = ?
		 ORDER BY name`, doctype, event)
}

// ListRules returns all rules.
func (db *DB) ListRules(ctx context.Context) ([]models.NotificationRule, error) {
	return db.queryRules(ctx,
		`SELECT CAST(id AS VARCHAR), name, enabled, doctype, trigger_event, condition, subject_template, message_template, channel, created_at, updated_at
		 FROM notification_rules ORDER BY name`)
}

// GetRule loads one rule by ID.
func (db *DB) GetRule(ctx context.Context, id string) (*models.NotificationRule, error) {
	rules, err := db.queryRules(ctx,
		`SELECT CAST(id AS VARCHAR), name, enabled, doctype, trigger_event, condition, subject_template, message_template, channel, created_at, updated_at
		 FROM notification_rules WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrNotFound
	}
	return &rules[0], nil
}

func (db *DB) queryRules(ctx context.Context, query string, args ...interface{}) ([]models.NotificationRule, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification rules: %w", err)
	}
	defer closeWithLog(rows, "rule rows")

	var rules []models.NotificationRule
	for rows.Next() {
		var (
			r              models.NotificationRule
			condition, msg sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Enabled, &r.Doctype, &r.TriggerEvent,
			&condition, &r.SubjectTemplate, &msg, &r.Channel, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		r.Condition = condition.String
		r.MessageTemplate = msg.String
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rules {
		recipients, err := db.ruleRecipients(ctx, rules[i].ID)
		if err != nil {
			return nil, err
		}
		rules[i].Recipients = recipients
	}
	return rules, nil
}

func (db *DB) ruleRecipients(ctx context.Context, ruleID string) ([]models.RecipientRule, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT recipient_type, recipient_value FROM rule_recipients WHERE rule_id = ? ORDER BY recipient_type, recipient_value`,
		ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule recipients: %w", err)
	}
	defer closeWithLog(rows, "recipient rows")

	var recipients []models.RecipientRule
	for rows.Next() {
		var r models.RecipientRule
		if err := rows.Scan(&r.Type, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan recipient row: %w", err)
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// CreateRule inserts a rule with its recipients and returns the
// generated ID.
func (db *DB) CreateRule(ctx context.Context, rule *models.NotificationRule) error {
	rule.ID = uuid.NewString()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notification_rules (id, name, enabled, doctype, trigger_event, condition, subject_template, message_template, channel, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.Enabled, rule.Doctype, rule.TriggerEvent,
		nullIfEmpty(rule.Condition), rule.SubjectTemplate, nullIfEmpty(rule.MessageTemplate),
		rule.Channel, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule %s: %w", rule.Name, err)
	}
	return db.replaceRecipients(ctx, rule.ID, rule.Recipients)
}

// UpdateRule replaces a rule and its recipients.
func (db *DB) UpdateRule(ctx context.Context, rule *models.NotificationRule) error {
	rule.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notification_rules
		 SET name = ?, enabled = ?, doctype = ?, trigger_event = ?, condition = ?,
		     subject_template = ?, message_template = ?, channel = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Name, rule.Enabled, rule.Doctype, rule.TriggerEvent, nullIfEmpty(rule.Condition),
		rule.SubjectTemplate, nullIfEmpty(rule.MessageTemplate), rule.Channel, rule.UpdatedAt, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return db.replaceRecipients(ctx, rule.ID, rule.Recipients)
}

// DeleteRule removes a rule and its recipients.
func (db *DB) DeleteRule(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notification_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM rule_recipients WHERE rule_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete rule recipients: %w", err)
	}
	return nil
}

func (db *DB) replaceRecipients(ctx context.Context, ruleID string, recipients []models.RecipientRule) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM rule_recipients WHERE rule_id = ?`, ruleID); err != nil {
		return fmt.Errorf("failed to clear rule recipients: %w", err)
	}
	for _, r := range recipients {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO rule_recipients (rule_id, recipient_type, recipient_value) VALUES (?, ?, ?)`,
			ruleID, r.Type, r.Value); err != nil {
			return fmt.Errorf("failed to insert rule recipient: %w", err)
		}
	}
	return nil
}

// IsDuplicateName reports whether err is the unique-name violation from
// rule creation. DuckDB surfaces constraint violations as text only.
func IsDuplicateName(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") || strings.Contains(msg, "UNIQUE")
}
