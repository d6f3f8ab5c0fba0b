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

	"github.com/ledgerline/ledgerline/internal/models"
)

// GetUser loads one user by username.
func (db *DB) GetUser(ctx context.Context, username string) (*models.User, error) {
	var (
		u             models.User
		email, mobile sql.NullString
		hash          sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT username, full_name, email, mobile, role, enabled, password_hash, created_at
		 FROM users WHERE username = ?`, username).
		Scan(&u.Username, &u.FullName, &email, &mobile, &u.Role, &u.Enabled, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}
	u.Email = email.String
	u.Mobile = mobile.String
	u.PasswordHash = hash.String
	return &u, nil
}

// UpsertUser inserts or updates a user row.
func (db *DB) UpsertUser(ctx context.Context, u *models.User) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, full_name, email, mobile, role, enabled, password_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			mobile = excluded.mobile,
			role = excluded.role,
			enabled = excluded.enabled,
			password_hash = excluded.password_hash`,
		u.Username, u.FullName, nullIfEmpty(u.Email), nullIfEmpty(u.Mobile),
		u.Role, u.Enabled, nullIfEmpty(u.PasswordHash))
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.Username, err)
	}
	return nil
}

// GetEnabledUsersByRole returns every enabled user holding the role,
// either as their primary role or through user_roles.
func (db *DB) GetEnabledUsersByRole(ctx context.Context, role string) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT username, full_name, email, mobile, role, enabled, created_at
		 FROM users
		 WHERE enabled
		   AND (role = ? OR username IN (SELECT username FROM user_roles WHERE role = ?))
		 ORDER BY username`, role, role)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role %s: %w", role, err)
	}
	defer closeWithLog(rows, "user rows")

	var users []models.User
	for rows.Next() {
		var (
			u             models.User
			email, mobile sql.NullString
		)
		if err := rows.Scan(&u.Username, &u.FullName, &email, &mobile, &u.Role, &u.Enabled, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.Email = email.String
		u.Mobile = mobile.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddUserRole grants an additional role to a user.
func (db *DB) AddUserRole(ctx context.Context, username, role string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_roles (username, role) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		username, role)
	if err != nil {
		return fmt.Errorf("failed to add role %s to %s: %w", role, username, err)
	}
	return nil
}
