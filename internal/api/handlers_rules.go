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
	"github.com/ledgerline/ledgerline/internal/validation"
)

// ruleFromBody decodes and validates a rule payload, including its
// subject and message templates.
func (s *Server) ruleFromBody(w http.ResponseWriter, r *http.Request) (*models.NotificationRule, bool) {
	var rule models.NotificationRule
	if !decodeBody(w, r, &rule) {
		return nil, false
	}
	if re := validation.ValidateStruct(rule); re != nil {
		writeValidationError(w, re)
		return nil, false
	}
	if s.tmpl != nil {
		if err := s.tmpl.Validate(rule.SubjectTemplate); err != nil {
			writeError(w, http.StatusBadRequest, errCodeValidation,
				"invalid subject template: "+err.Error(), nil)
			return nil, false
		}
		if rule.MessageTemplate != "" {
			if err := s.tmpl.Validate(rule.MessageTemplate); err != nil {
				writeError(w, http.StatusBadRequest, errCodeValidation,
					"invalid message template: "+err.Error(), nil)
				return nil, false
			}
		}
	}
	return &rule, true
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rules, err := s.db.ListRules(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list rules")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to list rules", nil)
		return
	}
	writeSuccess(w, http.StatusOK, rules, start)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start := time.Now()
	rule, err := s.db.GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, "rule not found", nil)
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to load rule")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to load rule", nil)
		return
	}
	writeSuccess(w, http.StatusOK, rule, start)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	if err := s.db.CreateRule(r.Context(), rule); err != nil {
		if database.IsDuplicateName(err) {
			writeError(w, http.StatusConflict, errCodeConflict, "a rule with this name already exists", nil)
			return
		}
		s.log.Error().Err(err).Str("name", rule.Name).Msg("failed to create rule")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to create rule", nil)
		return
	}
	s.log.Info().Str("id", rule.ID).Str("name", rule.Name).Msg("notification rule created")
	writeSuccess(w, http.StatusCreated, rule, start)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ruleFromBody(w, r)
	if !ok {
		return
	}
	rule.ID = chi.URLParam(r, "id")

	start := time.Now()
	if err := s.db.UpdateRule(r.Context(), rule); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, "rule not found", nil)
			return
		}
		if database.IsDuplicateName(err) {
			writeError(w, http.StatusConflict, errCodeConflict, "a rule with this name already exists", nil)
			return
		}
		s.log.Error().Err(err).Str("id", rule.ID).Msg("failed to update rule")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to update rule", nil)
		return
	}
	writeSuccess(w, http.StatusOK, rule, start)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	start := time.Now()
	if err := s.db.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, errCodeNotFound, "rule not found", nil)
			return
		}
		s.log.Error().Err(err).Str("id", id).Msg("failed to delete rule")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to delete rule", nil)
		return
	}
	s.log.Info().Str("id", id).Msg("notification rule deleted")
	writeSuccess(w, http.StatusOK, map[string]string{"id": id}, start)
}
