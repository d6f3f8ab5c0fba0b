// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package middleware

import (
	"net/http"
	"time"

	"github.com/ledgerline/ledgerline/internal/logging"
)

// RequestLogger logs one structured line per finished request.
func RequestLogger(next http.Handler) http.Handler {
	log := logging.Component("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		ev := log.Info()
		if wrapper.status >= http.StatusInternalServerError {
			ev = log.Error()
		} else if wrapper.status >= http.StatusBadRequest {
			ev = log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Str("request_id", GetRequestID(r.Context())).
			Msg("Request handled")
	})
}
