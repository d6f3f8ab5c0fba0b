// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"net/http"
	"time"

	"github.com/ledgerline/ledgerline/internal/models"
)

// cashFlowFilters builds report filters from the query string. The
// window defaults to the current day.
func cashFlowFilters(r *http.Request) (models.CashFlowFilters, error) {
	today := startOfDay(time.Now())
	from, err := queryDate(r, "from_date", today)
	if err != nil {
		return models.CashFlowFilters{}, err
	}
	to, err := queryDate(r, "to_date", today)
	if err != nil {
		return models.CashFlowFilters{}, err
	}
	q := r.URL.Query()
	return models.CashFlowFilters{
		FromDate:      from,
		ToDate:        to,
		Account:       q.Get("account"),
		VoucherType:   q.Get("voucher_type"),
		Party:         q.Get("party"),
		ModeOfPayment: q.Get("mode_of_payment"),
	}, nil
}

func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	filters, err := cashFlowFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	report, err := s.db.DailyCashFlow(r.Context(), filters)
	if err != nil {
		s.log.Error().Err(err).Msg("cash flow report failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to build cash flow report", nil)
		return
	}
	writeSuccess(w, http.StatusOK, report, start)
}

func (s *Server) handleCashFlowSummary(w http.ResponseWriter, r *http.Request) {
	filters, err := cashFlowFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	report, err := s.db.DailyCashFlow(r.Context(), filters)
	if err != nil {
		s.log.Error().Err(err).Msg("cash flow summary failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to build cash flow summary", nil)
		return
	}
	writeSuccess(w, http.StatusOK, report.Summary, start)
}

func dailySalesFilters(r *http.Request) (models.DailySalesFilters, error) {
	today := startOfDay(time.Now())
	from, err := queryDate(r, "from_date", today)
	if err != nil {
		return models.DailySalesFilters{}, err
	}
	to, err := queryDate(r, "to_date", today)
	if err != nil {
		return models.DailySalesFilters{}, err
	}
	return models.DailySalesFilters{
		FromDate:        from,
		ToDate:          to,
		Customer:        r.URL.Query().Get("customer"),
		ShowOutstanding: queryBool(r, "show_outstanding"),
	}, nil
}

func (s *Server) handleDailySales(w http.ResponseWriter, r *http.Request) {
	filters, err := dailySalesFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	report, err := s.db.DailySales(r.Context(), filters)
	if err != nil {
		s.log.Error().Err(err).Msg("daily sales report failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to build daily sales report", nil)
		return
	}
	writeSuccess(w, http.StatusOK, report, start)
}

func (s *Server) handleDailySalesChart(w http.ResponseWriter, r *http.Request) {
	filters, err := dailySalesFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	report, err := s.db.DailySales(r.Context(), filters)
	if err != nil {
		s.log.Error().Err(err).Msg("daily sales chart failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to build daily sales chart", nil)
		return
	}
	writeSuccess(w, http.StatusOK, report.Chart, start)
}

func (s *Server) handleSalesOutstanding(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of", startOfDay(time.Now()))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	rows, err := s.db.SalesOutstandingAging(r.Context(), asOf)
	if err != nil {
		s.log.Error().Err(err).Msg("outstanding aging report failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to build outstanding aging report", nil)
		return
	}
	writeSuccess(w, http.StatusOK, rows, start)
}

func (s *Server) handleCustomerOutstanding(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of", startOfDay(time.Now()))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	rows, err := s.db.CustomerOutstanding(r.Context(), asOf)
	if err != nil {
		s.log.Error().Err(err).Msg("customer outstanding report failed")
		writeError(w, http.StatusInternalServerError, errCodeDatabase, "failed to build customer outstanding report", nil)
		return
	}
	writeSuccess(w, http.StatusOK, rows, start)
}
