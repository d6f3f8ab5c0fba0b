// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package scheduler runs the background ledger scans on cron schedules.
//
// scheduler.go - Job Scheduler
//
// The scheduler wakes on a configurable interval, finds jobs whose next
// run time has passed, and executes them under a concurrency limit and
// per-job timeout. Cron expressions use the standard five-field format.
// Jobs can also be triggered by name, which is how the manual trigger
// endpoints run a scan out of schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/metrics"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	spec     string
	schedule cron.Schedule
	run      JobFunc

	mu        sync.Mutex
	nextRun   time.Time
	lastRun   time.Time
	lastError string
}

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler executes registered jobs on their cron schedules.
type Scheduler struct {
	cfg config.SchedulerConfig
	log zerolog.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler. Jobs are registered before Start.
func New(cfg config.SchedulerConfig) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &Scheduler{
		cfg:  cfg,
		log:  logging.Component("scheduler"),
		jobs: make(map[string]*job),
	}
}

// Register adds a named job with a five-field cron expression.
func (s *Scheduler) Register(name, cronExpr string, fn JobFunc) error {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s is already registered", name)
	}
	s.jobs[name] = &job{
		name:     name,
		spec:     cronExpr,
		schedule: schedule,
		run:      fn,
		nextRun:  schedule.Next(time.Now()),
	}
	s.order = append(s.order, name)
	return nil
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.cfg.Enabled {
		s.log.Info().Msg("Scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.log.Info().
		Dur("check_interval", s.cfg.CheckInterval).
		Int("max_concurrent", s.cfg.MaxConcurrentJobs).
		Int("jobs", len(s.jobs)).
		Msg("Starting scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for it to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runDueJobs(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runDueJobs(ctx context.Context) {
	now := time.Now()
	due := s.dueJobs(now)
	if len(due) == 0 {
		return
	}

	sem := make(chan struct{}, s.cfg.MaxConcurrentJobs)
	var wg sync.WaitGroup
	for _, j := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(j *job) {
			defer wg.Done()
			defer func() { <-sem }()
			s.execute(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (s *Scheduler) dueJobs(now time.Time) []*job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*job
	for _, name := range s.order {
		j := s.jobs[name]
		j.mu.Lock()
		if !j.nextRun.After(now) {
			j.nextRun = j.schedule.Next(now)
			due = append(due, j)
		}
		j.mu.Unlock()
	}
	return due
}

func (s *Scheduler) execute(ctx context.Context, j *job) {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	s.log.Info().Str("job", j.name).Msg("Running scheduled job")
	err := j.run(jobCtx)
	duration := time.Since(start)
	metrics.RecordJobRun(j.name, duration, err)

	j.mu.Lock()
	j.lastRun = start
	if err != nil {
		j.lastError = err.Error()
	} else {
		j.lastError = ""
	}
	j.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).
			Str("job", j.name).
			Dur("duration", duration).
			Msg("Scheduled job failed")
		return
	}
	s.log.Info().
		Str("job", j.name).
		Dur("duration", duration).
		Msg("Scheduled job finished")
}

// Trigger runs a job by name immediately, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	s.execute(ctx, j)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastError != "" {
		return fmt.Errorf("job %s failed: %s", name, j.lastError)
	}
	return nil
}

// Jobs returns the status of every registered job in registration order.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		j.mu.Lock()
		statuses = append(statuses, JobStatus{
			Name:      j.name,
			Schedule:  j.spec,
			NextRun:   j.nextRun,
			LastRun:   j.lastRun,
			LastError: j.lastError,
		})
		j.mu.Unlock()
	}
	return statuses
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
