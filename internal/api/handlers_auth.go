// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/validation"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.authSvc == nil {
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "authentication is not configured", nil)
		return
	}

	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if re := validation.ValidateStruct(req); re != nil {
		writeValidationError(w, re)
		return
	}

	start := time.Now()
	resp, err := s.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, errCodeAuthentication, "invalid username or password", nil)
			return
		}
		s.log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, errCodeInternal, "login failed", nil)
		return
	}
	writeSuccess(w, http.StatusOK, resp, start)
}

// actor returns the authenticated username, falling back to the
// configured admin name when authentication is disabled.
func (s *Server) actor(r *http.Request) string {
	if claims, ok := auth.FromContext(r.Context()); ok {
		return claims.Username
	}
	if s.cfg.Security.AdminUsername != "" {
		return s.cfg.Security.AdminUsername
	}
	return "system"
}
