// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package main is the entry point for the Ledgerline server.
//
// Ledgerline is a retail back-office service: it watches business
// documents (invoices, payments, stock bins) in an embedded DuckDB
// ledger, fires configurable notification rules over in-app, email and
// SMS channels, serves the daily cash flow / daily sales / customer
// outstanding reports, and runs scheduled overdue-invoice and low-stock
// scans.
//
// Startup order:
//
//  1. Configuration: koanf v2 layered loading (defaults, YAML file,
//     LEDGERLINE_* environment variables)
//  2. Logging: zerolog global logger
//  3. Database: embedded DuckDB with ledger schema and projections
//  4. Event bus: in-process Watermill GoChannel pub/sub
//  5. Delivery: SMTP mailer, Hormuud SMS gateway, websocket hub
//  6. Rule engine, scheduler and HTTP API
//  7. Supervision: all long-running services run under a suture tree
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/notify"
	"github.com/ledgerline/ledgerline/internal/rules"
	"github.com/ledgerline/ledgerline/internal/scheduler"
	"github.com/ledgerline/ledgerline/internal/sms"
	"github.com/ledgerline/ledgerline/internal/supervisor"
	"github.com/ledgerline/ledgerline/internal/templates"
	"github.com/ledgerline/ledgerline/internal/websocket"
)

// eventBusBuffer bounds how many unconsumed messages a topic holds
// before publishers block.
const eventBusBuffer = 256

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Component("main")
	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Path).
		Msg("starting ledgerline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	if cfg.Database.SeedDemo {
		if err := db.SeedDemoData(); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.Info().Msg("demo data seeded")
	}

	bus := events.NewBus(eventBusBuffer)
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event bus")
		}
	}()

	hub := websocket.NewHub()

	// Delivery channels. Email and SMS stay dormant unless configured;
	// in-app delivery always works.
	mailer := notify.NewMailer(&cfg.Email)
	smsService := sms.NewService(&cfg.SMS, sms.NewClient(&cfg.SMS), db, bus)
	notifier := notify.NewNotifier(db, hub, mailer, smsService)

	tmpl := templates.NewEngine(cfg.Reports.CurrencySymbol)
	engine := rules.NewEngine(db, notifier, tmpl)

	sched := scheduler.New(cfg.Scheduler)
	jobs := scheduler.NewJobs(db, notifier, cfg.Scheduler)
	if err := jobs.RegisterAll(sched); err != nil {
		return fmt.Errorf("register scheduled jobs: %w", err)
	}

	deps := api.Deps{
		DB:        db,
		Bus:       bus,
		Hub:       hub,
		SMS:       smsService,
		Scheduler: sched,
		Templates: tmpl,
	}

	if cfg.Security.JWTSecret != "" {
		manager, err := auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return fmt.Errorf("configure jwt: %w", err)
		}
		authSvc := auth.NewService(db, manager)
		if err := authSvc.EnsureAdmin(ctx, &cfg.Security); err != nil {
			return fmt.Errorf("ensure admin account: %w", err)
		}
		deps.JWT = manager
		deps.AuthService = authSvc
		log.Info().Msg("jwt authentication enabled")
	} else {
		log.Warn().Msg("security.jwt_secret is unset, the API is open")
	}

	server := api.NewServer(cfg, deps)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddMessagingService(supervisor.NewEngineService(engine, bus))
	if smsService.Enabled() {
		tree.AddMessagingService(supervisor.NewWorkerService("sms-worker", smsService))
	}
	tree.AddJobService(supervisor.NewSchedulerService(sched))
	tree.AddAPIService(supervisor.NewHTTPService(server))

	log.Info().
		Int("port", cfg.Server.Port).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Bool("sms", smsService.Enabled()).
		Bool("email", mailer.Enabled()).
		Msg("service tree starting")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("service tree: %w", err)
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			log.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}

	log.Info().Msg("shutdown complete")
	return nil
}
