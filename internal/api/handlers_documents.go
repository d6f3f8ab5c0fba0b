// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/validation"
)

// saveDocumentRequest is the body for a document save.
type saveDocumentRequest struct {
	Name   string                 `json:"name" validate:"required"`
	Fields map[string]interface{} `json:"fields" validate:"required"`
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	doctype := pathParam(r, "doctype")

	var req saveDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if re := validation.ValidateStruct(req); re != nil {
		writeValidationError(w, re)
		return
	}

	doc := &models.Document{
		Doctype:    doctype,
		Name:       req.Name,
		Fields:     req.Fields,
		ModifiedBy: s.actor(r),
	}

	start := time.Now()
	prev, err := s.db.SaveDocument(r.Context(), doc)
	if err != nil {
		s.writeDocumentError(w, doctype, req.Name, err)
		return
	}

	s.publishLifecycle(doc, models.EventSave, prev)
	writeSuccess(w, http.StatusOK, doc, start)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doctype := pathParam(r, "doctype")
	name := pathParam(r, "name")

	start := time.Now()
	doc, err := s.db.GetDocument(r.Context(), doctype, name)
	if err != nil {
		s.writeDocumentError(w, doctype, name, err)
		return
	}
	writeSuccess(w, http.StatusOK, doc, start)
}

func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	doctype := pathParam(r, "doctype")
	name := pathParam(r, "name")

	start := time.Now()
	doc, err := s.db.SubmitDocument(r.Context(), doctype, name, s.actor(r))
	if err != nil {
		s.writeDocumentError(w, doctype, name, err)
		return
	}

	s.publishLifecycle(doc, models.EventSubmit, nil)
	writeSuccess(w, http.StatusOK, doc, start)
}

func (s *Server) handleCancelDocument(w http.ResponseWriter, r *http.Request) {
	doctype := pathParam(r, "doctype")
	name := pathParam(r, "name")

	start := time.Now()
	doc, err := s.db.CancelDocument(r.Context(), doctype, name, s.actor(r))
	if err != nil {
		s.writeDocumentError(w, doctype, name, err)
		return
	}

	s.publishLifecycle(doc, models.EventCancel, nil)
	writeSuccess(w, http.StatusOK, doc, start)
}

// publishLifecycle feeds the rule engine and live dashboards with a
// document transition.
func (s *Server) publishLifecycle(doc *models.Document, event string, prev map[string]interface{}) {
	evt := &models.DocumentEvent{
		Doctype:   doc.Doctype,
		Name:      doc.Name,
		Event:     event,
		Docstatus: doc.Docstatus,
		Fields:    doc.Fields,
		Previous:  prev,
		Timestamp: time.Now().UTC(),
		User:      doc.ModifiedBy,
	}
	if err := s.bus.PublishDocumentEvent(evt); err != nil {
		s.log.Error().Err(err).
			Str("doctype", doc.Doctype).
			Str("name", doc.Name).
			Str("event", event).
			Msg("failed to publish document event")
	}
	if s.hub != nil {
		s.hub.BroadcastDocumentUpdate(evt)
	}
}

func (s *Server) writeDocumentError(w http.ResponseWriter, doctype, name string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, errCodeNotFound, "document not found", map[string]interface{}{
			"doctype": doctype, "name": name,
		})
	case errors.Is(err, database.ErrDocstatus):
		writeError(w, http.StatusConflict, errCodeConflict, err.Error(), nil)
	default:
		s.log.Error().Err(err).Str("doctype", doctype).Str("name", name).Msg("document operation failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "document operation failed", nil)
	}
}
