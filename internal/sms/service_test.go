// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package sms

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/models"
)

// fakeGateway scripts per-recipient outcomes. Worker tests touch it
// from another goroutine, so state is mutex-guarded.
type fakeGateway struct {
	mu        sync.Mutex
	failFor   map[string]bool
	sent      []string
	bulkCalls int
}

func (f *fakeGateway) SendSMS(_ context.Context, mobile, _ string) (*SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[mobile] {
		return &SendResult{Success: false, ResponseCode: CodeWrongMobile, Error: "Wrong mobile number"}, nil
	}
	f.sent = append(f.sent, mobile)
	return &SendResult{Success: true, ResponseCode: CodeSuccess, Raw: `{"ResponseCode":"200"}`}, nil
}

func (f *fakeGateway) SendBulk(_ context.Context, mobiles []string, _ string) ([]*SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	f.sent = append(f.sent, mobiles...)
	return []*SendResult{{Success: true, Requested: len(mobiles), Sent: len(mobiles)}}, nil
}

func (f *fakeGateway) CheckBalance(context.Context) (*BalanceResult, error) {
	return &BalanceResult{Success: true, Balance: 10}, nil
}

func (f *fakeGateway) bulkCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bulkCalls
}

func (f *fakeGateway) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newServiceForTest(t *testing.T, gw Gateway) (*Service, *database.DB, *events.Bus) {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewBus(16)
	t.Cleanup(func() { _ = bus.Close() })

	cfg := testConfig("http://unused")
	return NewService(cfg, gw, db, bus), db, bus
}

func TestServiceSendLogsOutcome(t *testing.T) {
	gw := &fakeGateway{failFor: map[string]bool{"252615550002": true}}
	svc, db, _ := newServiceForTest(t, gw)
	ctx := context.Background()

	entry, err := svc.Send(ctx, []string{"0615550001", "0615550002", "0615550003"}, "stock alert")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if entry.RequestedCount != 3 || entry.SentCount != 2 {
		t.Errorf("counts = %d/%d, want 2/3", entry.SentCount, entry.RequestedCount)
	}
	if entry.Status != models.SMSStatusPartial {
		t.Errorf("Status = %q, want %q", entry.Status, models.SMSStatusPartial)
	}
	if entry.Error == "" {
		t.Error("expected error detail for the failed recipient")
	}

	stored, err := db.GetSMSLog(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetSMSLog() error = %v", err)
	}
	if stored.Status != models.SMSStatusPartial || stored.SentCount != 2 {
		t.Errorf("stored log = %+v", stored)
	}
}

func TestServiceSendAllFailed(t *testing.T) {
	gw := &fakeGateway{failFor: map[string]bool{"252615550001": true}}
	svc, _, _ := newServiceForTest(t, gw)

	entry, err := svc.Send(context.Background(), []string{"0615550001"}, "stock alert")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if entry.Status != models.SMSStatusFailed {
		t.Errorf("Status = %q, want %q", entry.Status, models.SMSStatusFailed)
	}
}

func TestServiceDisabled(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, _ := newServiceForTest(t, gw)
	svc.cfg.Enabled = false

	if _, err := svc.Send(context.Background(), []string{"0615550001"}, "x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Send() error = %v, want ErrDisabled", err)
	}
	if _, err := svc.Balance(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Balance() error = %v, want ErrDisabled", err)
	}
}

func TestServiceEnqueueAndWorker(t *testing.T) {
	gw := &fakeGateway{}
	svc, db, _ := newServiceForTest(t, gw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerDone := make(chan struct{})
	go func() {
		_ = svc.RunWorker(ctx)
		close(workerDone)
	}()
	time.Sleep(20 * time.Millisecond)

	entry, err := svc.Enqueue(ctx, []string{"0615550001", "0615550002"}, "two recipients")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if entry.Status != models.SMSStatusQueued {
		t.Errorf("queued entry status = %q", entry.Status)
	}

	// Wait for the worker to process the job through the bulk path.
	deadline := time.After(2 * time.Second)
	for gw.bulkCallCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker did not process queued job")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := gw.sentCount(); got != 2 {
		t.Errorf("worker sent %d messages, want 2", got)
	}

	// The worker writes its own audit row for the actual send.
	logs, err := db.ListSMSLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSMSLogs() error = %v", err)
	}
	if len(logs) < 2 {
		t.Errorf("got %d sms log rows, want queued + sent", len(logs))
	}

	cancel()
	select {
	case <-workerDone:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
