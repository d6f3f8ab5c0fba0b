// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package supervisor

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/rules"
	"github.com/ledgerline/ledgerline/internal/scheduler"
)

// ContextHub matches *websocket.Hub's RunWithContext method, which
// already follows the suture service pattern.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService supervises the websocket hub.
type HubService struct {
	hub ContextHub
}

func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string { return "websocket-hub" }

// EngineService supervises the notification rule engine's bus consumer.
type EngineService struct {
	engine *rules.Engine
	bus    *events.Bus
}

func NewEngineService(engine *rules.Engine, bus *events.Bus) *EngineService {
	return &EngineService{engine: engine, bus: bus}
}

func (s *EngineService) Serve(ctx context.Context) error {
	return s.engine.Run(ctx, s.bus)
}

func (s *EngineService) String() string { return "rules-engine" }

// ContextWorker matches a blocking worker loop bound to a context, such
// as the SMS queue consumer.
type ContextWorker interface {
	RunWorker(ctx context.Context) error
}

// WorkerService supervises a queue worker.
type WorkerService struct {
	worker ContextWorker
	name   string
}

func NewWorkerService(name string, worker ContextWorker) *WorkerService {
	return &WorkerService{worker: worker, name: name}
}

func (s *WorkerService) Serve(ctx context.Context) error {
	return s.worker.RunWorker(ctx)
}

func (s *WorkerService) String() string { return s.name }

// SchedulerService adapts the scheduler's Start/Stop lifecycle to a
// blocking suture service.
type SchedulerService struct {
	sched *scheduler.Scheduler
}

func NewSchedulerService(sched *scheduler.Scheduler) *SchedulerService {
	return &SchedulerService{sched: sched}
}

func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := s.sched.Stop(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string { return "job-scheduler" }

// ContextServer matches the API server's Run method.
type ContextServer interface {
	Run(ctx context.Context) error
}

// HTTPService supervises the HTTP server.
type HTTPService struct {
	server ContextServer
}

func NewHTTPService(server ContextServer) *HTTPService {
	return &HTTPService{server: server}
}

func (s *HTTPService) Serve(ctx context.Context) error {
	return s.server.Run(ctx)
}

func (s *HTTPService) String() string { return "http-server" }
