// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"net/http"
	"time"
)

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	if s.sched == nil {
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "scheduler is not configured", nil)
		return
	}
	writeSuccess(w, http.StatusOK, s.sched.Jobs(), time.Time{})
}

// triggerJob runs a scheduled scan immediately, outside its cron
// window.
func (s *Server) triggerJob(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sched == nil {
			writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "scheduler is not configured", nil)
			return
		}

		start := time.Now()
		if err := s.sched.Trigger(r.Context(), name); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("manual job trigger failed")
			writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error(), map[string]interface{}{
				"job": name,
			})
			return
		}
		s.log.Info().Str("job", name).Str("user", s.actor(r)).Msg("job triggered manually")
		writeSuccess(w, http.StatusOK, map[string]string{"job": name, "result": "completed"}, start)
	}
}
