// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/websocket"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("user")
	if username == "" {
		username = s.actor(r)
	}
	limit := queryInt(r, "limit", s.cfg.API.DefaultPageSize, s.cfg.API.MaxPageSize)

	start := time.Now()
	logs, err := s.db.ListNotificationsForUser(r.Context(), username, limit)
	if err != nil {
		s.log.Error().Err(err).Str("user", username).Msg("failed to list notifications")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to list notifications", nil)
		return
	}
	writeSuccess(w, http.StatusOK, logs, start)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start := time.Now()
	owner, err := s.db.MarkNotificationRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, "notification not found", nil)
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to mark notification read")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to mark notification read", nil)
		return
	}

	// Let the owner's other open sessions drop the unread badge.
	if s.hub != nil {
		s.hub.SendJSONToUser(owner, websocket.MessageTypeNotificationRead, map[string]string{"id": id})
	}
	writeSuccess(w, http.StatusOK, map[string]string{"id": id, "for_user": owner}, start)
}
