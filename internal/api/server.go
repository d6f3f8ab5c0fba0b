// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package api exposes the HTTP surface: authentication, reports, SMS,
// notification rules, documents, jobs and the WebSocket upgrade. Every
// JSON endpoint answers with the standard response envelope.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/middleware"
	"github.com/ledgerline/ledgerline/internal/scheduler"
	"github.com/ledgerline/ledgerline/internal/sms"
	"github.com/ledgerline/ledgerline/internal/templates"
	"github.com/ledgerline/ledgerline/internal/websocket"
)

// Server wires the HTTP handlers to their backing services.
type Server struct {
	cfg     *config.Config
	db      *database.DB
	bus     *events.Bus
	hub     *websocket.Hub
	sms     *sms.Service
	sched   *scheduler.Scheduler
	authSvc *auth.Service
	jwt     *auth.JWTManager
	tmpl    *templates.Engine
	log     zerolog.Logger
}

// Deps carries the services a Server needs. JWT and AuthService are nil
// when security.jwt_secret is unset, which disables authentication.
type Deps struct {
	DB          *database.DB
	Bus         *events.Bus
	Hub         *websocket.Hub
	SMS         *sms.Service
	Scheduler   *scheduler.Scheduler
	JWT         *auth.JWTManager
	AuthService *auth.Service
	Templates   *templates.Engine
}

// NewServer creates the HTTP server wiring.
func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:     cfg,
		db:      deps.DB,
		bus:     deps.Bus,
		hub:     deps.Hub,
		sms:     deps.SMS,
		sched:   deps.Scheduler,
		authSvc: deps.AuthService,
		jwt:     deps.JWT,
		tmpl:    deps.Templates,
		log:     logging.Component("api"),
	}
}

// Router builds the chi routing tree with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestLogger)

	if !s.cfg.Security.RateLimitDisabled {
		r.Use(httprate.LimitByIP(s.cfg.Security.RateLimitReqs, s.cfg.Security.RateLimitWindow))
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/health", func(r chi.Router) {
			r.Get("/", s.handleHealth)
			r.Get("/live", s.handleHealthLive)
			r.Get("/ready", s.handleHealthReady)
		})

		r.Post("/auth/login", s.handleLogin)

		// Everything below requires a valid token when auth is enabled.
		r.Group(func(r chi.Router) {
			if s.jwt != nil {
				r.Use(auth.Middleware(s.jwt))
			}

			r.Route("/reports", func(r chi.Router) {
				r.Get("/cash-flow", s.handleCashFlow)
				r.Get("/cash-flow/summary", s.handleCashFlowSummary)
				r.Get("/daily-sales", s.handleDailySales)
				r.Get("/daily-sales/chart", s.handleDailySalesChart)
				r.Get("/daily-sales/outstanding", s.handleSalesOutstanding)
				r.Get("/customer-outstanding", s.handleCustomerOutstanding)
			})

			r.Route("/sms", func(r chi.Router) {
				r.Post("/send", s.handleSMSSend)
				r.Post("/send-async", s.handleSMSSendAsync)
				r.Get("/balance", s.handleSMSBalance)
				r.Get("/logs", s.handleSMSLogs)
				r.Get("/logs/{id}", s.handleSMSLog)
			})

			r.Route("/rules", func(r chi.Router) {
				r.Get("/", s.handleListRules)
				r.Post("/", s.handleCreateRule)
				r.Get("/{id}", s.handleGetRule)
				r.Put("/{id}", s.handleUpdateRule)
				r.Delete("/{id}", s.handleDeleteRule)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.handleListNotifications)
				r.Post("/{id}/read", s.handleMarkNotificationRead)
			})

			r.Route("/documents/{doctype}", func(r chi.Router) {
				r.Post("/", s.handleSaveDocument)
				r.Get("/{name}", s.handleGetDocument)
				r.Post("/{name}/submit", s.handleSubmitDocument)
				r.Post("/{name}/cancel", s.handleCancelDocument)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", s.handleListJobs)
				r.Post("/overdue-check", s.triggerJob(scheduler.JobOverdueInvoices))
				r.Post("/low-stock-check", s.triggerJob(scheduler.JobLowStock))
			})

			r.Get("/ws", s.handleWebSocket)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errCodeNotFound, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errCodeValidation, "method not allowed", nil)
	})

	return r
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully. Designed for suture supervision.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.Timeout,
		WriteTimeout:      s.cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
