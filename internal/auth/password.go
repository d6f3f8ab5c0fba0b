// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/models"
)

const bcryptCost = 12

// ErrInvalidCredentials is returned for any login failure. The caller
// gets no hint whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the user does not exist, so a
// lookup miss takes as long as a password mismatch.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("ledgerline-dummy-password"), bcryptCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Service authenticates users against the database and issues tokens.
type Service struct {
	db      *database.DB
	manager *JWTManager
}

// NewService builds the authentication service.
func NewService(db *database.DB, manager *JWTManager) *Service {
	return &Service{db: db, manager: manager}
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	user, err := s.db.GetUser(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		// Burn the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.manager.GenerateToken(user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// EnsureAdmin creates or updates the bootstrap admin account from
// configuration. A blank admin password leaves the account untouched.
func (s *Service) EnsureAdmin(ctx context.Context, cfg *config.SecurityConfig) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin password: %w", err)
	}

	user := &models.User{
		Username:     cfg.AdminUsername,
		FullName:     "Administrator",
		Role:         "System Manager",
		Enabled:      true,
		PasswordHash: hash,
	}
	if existing, err := s.db.GetUser(ctx, cfg.AdminUsername); err == nil {
		user.FullName = existing.FullName
		user.Email = existing.Email
		user.Mobile = existing.Mobile
	}
	if err := s.db.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to provision admin user: %w", err)
	}
	authlog := logging.Component("auth")
	authlog.Info().Str("username", cfg.AdminUsername).Msg("Admin account provisioned")
	return nil
}
