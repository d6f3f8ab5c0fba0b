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
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/sms"
	"github.com/ledgerline/ledgerline/internal/validation"
)

// bulkThreshold switches a synchronous send to the vendor's bulk
// endpoint when the recipient list is large.
const bulkThreshold = 10

func (s *Server) smsRequest(w http.ResponseWriter, r *http.Request) (*models.SMSSendRequest, bool) {
	var req models.SMSSendRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	if re := validation.ValidateStruct(req); re != nil {
		writeValidationError(w, re)
		return nil, false
	}
	return &req, true
}

func (s *Server) writeSMSError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sms.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "sms gateway is disabled", nil)
	default:
		writeError(w, http.StatusBadGateway, errCodeGateway, err.Error(), nil)
	}
}

func (s *Server) handleSMSSend(w http.ResponseWriter, r *http.Request) {
	req, ok := s.smsRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	var (
		entry *models.SMSLog
		err   error
	)
	if len(req.Recipients) >= bulkThreshold {
		entry, err = s.sms.SendBulk(r.Context(), req.Recipients, req.Message)
	} else {
		entry, err = s.sms.Send(r.Context(), req.Recipients, req.Message)
	}
	if err != nil {
		s.writeSMSError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entry, start)
}

func (s *Server) handleSMSSendAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.smsRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	entry, err := s.sms.Enqueue(r.Context(), req.Recipients, req.Message)
	if err != nil {
		s.writeSMSError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, entry, start)
}

func (s *Server) handleSMSBalance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	balance, err := s.sms.Balance(r.Context())
	if err != nil {
		s.writeSMSError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, balance, start)
}

func (s *Server) handleSMSLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", s.cfg.API.DefaultPageSize, s.cfg.API.MaxPageSize)

	start := time.Now()
	logs, err := s.db.ListSMSLogs(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list sms logs")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to list sms logs", nil)
		return
	}
	writeSuccess(w, http.StatusOK, logs, start)
}

func (s *Server) handleSMSLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start := time.Now()
	entry, err := s.db.GetSMSLog(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, "sms log not found", nil)
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to load sms log")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to load sms log", nil)
		return
	}
	writeSuccess(w, http.StatusOK, entry, start)
}
