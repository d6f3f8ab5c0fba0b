// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/validation"
)

// Error codes used across the API surface.
const (
	errCodeValidation     = "VALIDATION_ERROR"
	errCodeDatabase       = "DATABASE_ERROR"
	errCodeAuthentication = "AUTHENTICATION_ERROR"
	errCodeNotFound       = "NOT_FOUND"
	errCodeGateway        = "GATEWAY_ERROR"
	errCodeConflict       = "CONFLICT"
	errCodeInternal       = "INTERNAL_ERROR"
	errCodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// writeSuccess emits a success envelope. start feeds the query-time
// metadata; pass a zero time to omit it.
func writeSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	resp := models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	}
	if !start.IsZero() {
		resp.Metadata.QueryTimeMS = time.Since(start).Milliseconds()
	}
	writeJSON(w, status, resp)
}

// writeError emits an error envelope with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	writeJSON(w, status, models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeValidationError maps a request validation failure to the
// envelope, carrying the per-field details.
func writeValidationError(w http.ResponseWriter, re *validation.RequestError) {
	writeError(w, http.StatusBadRequest, errCodeValidation, re.Error(), re.Details())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// decodeBody parses a JSON request body into dst with a size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	return true
}
