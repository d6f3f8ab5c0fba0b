// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"net/http"
	"time"
)

type healthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Scheduler  bool              `json:"scheduler_running"`
	WSClients  int               `json:"ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	status := "healthy"
	httpStatus := http.StatusOK

	ctx, cancel := withTimeout(r, 5*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		components["database"] = "unreachable: " + err.Error()
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		components["database"] = "ok"
	}

	hs := healthStatus{
		Status:     status,
		Components: components,
	}
	if s.sched != nil {
		hs.Scheduler = s.sched.IsRunning()
	}
	if s.hub != nil {
		hs.WSClients = s.hub.ClientCount()
	}
	writeSuccess(w, httpStatus, hs, time.Time{})
}

func (s *Server) handleHealthLive(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Time{})
}

func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, 5*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "database not ready", nil)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, time.Time{})
}
