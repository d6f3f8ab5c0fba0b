// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/notify"
	"github.com/ledgerline/ledgerline/internal/scheduler"
)

func testRulePayload(name string) *models.NotificationRule {
	return &models.NotificationRule{
		Name:            name,
		Enabled:         true,
		Doctype:         "Sales Invoice",
		TriggerEvent:    models.EventSubmit,
		SubjectTemplate: "Invoice {{.name}} submitted",
		MessageTemplate: "Total {{currency .grand_total}}",
		Channel:         models.ChannelInApp,
		Recipients: []models.RecipientRule{
			{Type: models.RecipientRole, Value: "Accounts Manager"},
		},
	}
}

func TestRulesCRUD(t *testing.T) {
	env := newTestEnv(t, false)

	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/rules", "", testRulePayload("invoice-submitted"))
	if status != http.StatusCreated {
		t.Fatalf("create: status %d error %+v", status, resp.Error)
	}
	id, _ := dataMap(t, resp)["id"].(string)
	if id == "" {
		t.Fatal("create returned no rule id")
	}

	// Duplicate names are rejected.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/rules", "", testRulePayload("invoice-submitted"))
	if status != http.StatusConflict {
		t.Fatalf("duplicate create: status %d error %+v", status, resp.Error)
	}

	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/rules/"+id, "", nil)
	if status != http.StatusOK {
		t.Fatalf("get: status %d", status)
	}
	if got := dataMap(t, resp)["name"]; got != "invoice-submitted" {
		t.Errorf("get name = %v", got)
	}

	updated := testRulePayload("invoice-submitted-v2")
	status, resp = env.doJSON(t, http.MethodPut, "/api/v1/rules/"+id, "", updated)
	if status != http.StatusOK {
		t.Fatalf("update: status %d error %+v", status, resp.Error)
	}

	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/rules", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	rules, ok := resp.Data.([]interface{})
	if !ok || len(rules) != 1 {
		t.Fatalf("list returned %v", resp.Data)
	}

	status, _ = env.doJSON(t, http.MethodDelete, "/api/v1/rules/"+id, "", nil)
	if status != http.StatusOK {
		t.Fatalf("delete: status %d", status)
	}
	status, _ = env.doJSON(t, http.MethodGet, "/api/v1/rules/"+id, "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("get after delete: status %d, want 404", status)
	}
}

func TestCreateRuleRejectsBadTemplate(t *testing.T) {
	env := newTestEnv(t, false)

	rule := testRulePayload("broken")
	rule.SubjectTemplate = "{{.name"
	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/rules", "", rule)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if resp.Error == nil || resp.Error.Code != errCodeValidation {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestCreateRuleRejectsMissingRecipients(t *testing.T) {
	env := newTestEnv(t, false)

	rule := testRulePayload("no-recipients")
	rule.Recipients = nil
	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/rules", "", rule)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if resp.Error == nil || resp.Error.Code != errCodeValidation {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	env := newTestEnv(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := env.bus.Subscribe(ctx, events.TopicDocuments)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	body := saveDocumentRequest{
		Name: "SINV-1001",
		Fields: map[string]interface{}{
			"customer":     "CUST-0001",
			"posting_date": "2026-08-30",
			"due_date":     "2026-09-14",
			"grand_total":  1200.0,
		},
	}
	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/documents/Sales%20Invoice", "", body)
	if status != http.StatusOK {
		t.Fatalf("save: status %d error %+v", status, resp.Error)
	}

	waitForEvent := func(wantEvent string) {
		t.Helper()
		select {
		case msg := <-msgs:
			var evt models.DocumentEvent
			if err := events.Decode(msg, &evt); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			msg.Ack()
			if evt.Event != wantEvent || evt.Name != "SINV-1001" {
				t.Fatalf("event = %s/%s, want %s/SINV-1001", evt.Event, evt.Name, wantEvent)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s event published", wantEvent)
		}
	}
	waitForEvent(models.EventSave)

	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/documents/Sales%20Invoice/SINV-1001/submit", "", nil)
	if status != http.StatusOK {
		t.Fatalf("submit: status %d error %+v", status, resp.Error)
	}
	if got := dataMap(t, resp)["docstatus"]; got != float64(models.DocstatusSubmitted) {
		t.Errorf("docstatus after submit = %v", got)
	}
	waitForEvent(models.EventSubmit)

	// A submitted document cannot be saved over.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/documents/Sales%20Invoice", "", body)
	if status != http.StatusConflict {
		t.Fatalf("save after submit: status %d error %+v", status, resp.Error)
	}

	status, _ = env.doJSON(t, http.MethodPost, "/api/v1/documents/Sales%20Invoice/SINV-1001/cancel", "", nil)
	if status != http.StatusOK {
		t.Fatalf("cancel: status %d", status)
	}
	waitForEvent(models.EventCancel)

	status, _ = env.doJSON(t, http.MethodPost, "/api/v1/documents/Sales%20Invoice/SINV-9999/submit", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("submit unknown: status %d, want 404", status)
	}
}

func TestNotificationsListAndRead(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	entry := &models.NotificationLog{
		Subject:      "Invoice SINV-2001 submitted",
		Message:      "Total $ 900.00",
		ForUser:      "alice",
		Channel:      models.ChannelInApp,
		DocumentType: "Sales Invoice",
		DocumentName: "SINV-2001",
	}
	if err := env.db.InsertNotificationLog(ctx, entry); err != nil {
		t.Fatalf("insert notification: %v", err)
	}

	status, resp := env.doJSON(t, http.MethodGet, "/api/v1/notifications?user=alice", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list: status %d", status)
	}
	logs, ok := resp.Data.([]interface{})
	if !ok || len(logs) != 1 {
		t.Fatalf("list returned %v", resp.Data)
	}

	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/notifications/"+entry.ID+"/read", "", nil)
	if status != http.StatusOK {
		t.Fatalf("mark read: status %d error %+v", status, resp.Error)
	}
	if got := dataMap(t, resp)["for_user"]; got != "alice" {
		t.Errorf("for_user = %v", got)
	}

	status, _ = env.doJSON(t, http.MethodPost, "/api/v1/notifications/nope/read", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("mark unknown read: status %d, want 404", status)
	}
}

func TestSMSEndpointsDisabledGateway(t *testing.T) {
	env := newTestEnv(t, false)

	send := models.SMSSendRequest{Recipients: []string{"615551234"}, Message: "hello"}
	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/sms/send", "", send)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("send: status %d error %+v", status, resp.Error)
	}

	status, _ = env.doJSON(t, http.MethodGet, "/api/v1/sms/balance", "", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("balance: status %d, want 503", status)
	}

	// Validation runs before the gateway check.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/sms/send", "",
		models.SMSSendRequest{Message: "no recipients"})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid send: status %d", status)
	}
	if resp.Error == nil || resp.Error.Code != errCodeValidation {
		t.Errorf("invalid send error = %+v", resp.Error)
	}

	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/sms/logs", "", nil)
	if status != http.StatusOK || resp.Status != "success" {
		t.Fatalf("logs: status %d envelope %q", status, resp.Status)
	}

	status, _ = env.doJSON(t, http.MethodGet, "/api/v1/sms/logs/missing", "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("missing log: status %d, want 404", status)
	}
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{
		"/api/v1/reports/cash-flow",
		"/api/v1/reports/cash-flow/summary",
		"/api/v1/reports/daily-sales",
		"/api/v1/reports/daily-sales/chart",
		"/api/v1/reports/daily-sales/outstanding",
		"/api/v1/reports/customer-outstanding",
	} {
		status, resp := env.doJSON(t, http.MethodGet, path, "", nil)
		if status != http.StatusOK {
			t.Errorf("%s: status %d error %+v", path, status, resp.Error)
		}
	}

	status, resp := env.doJSON(t, http.MethodGet, "/api/v1/reports/daily-sales?from_date=yesterday", "", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("bad date: status %d", status)
	}
	if resp.Error == nil || resp.Error.Code != errCodeValidation {
		t.Errorf("bad date error = %+v", resp.Error)
	}
}

func TestJobEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	// No scheduler wired.
	status, _ := env.doJSON(t, http.MethodGet, "/api/v1/jobs", "", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("jobs without scheduler: status %d, want 503", status)
	}

	cfg := config.SchedulerConfig{
		Enabled:          true,
		OverdueSchedule:  "0 8 * * *",
		LowStockSchedule: "0 9 * * *",
		NotifyRoles:      []string{"Accounts Manager"},
	}
	sched := scheduler.New(cfg)
	jobs := scheduler.NewJobs(env.db, newTestNotifier(env.db), cfg)
	if err := jobs.RegisterAll(sched); err != nil {
		t.Fatalf("register jobs: %v", err)
	}
	env.server.sched = sched
	env.router = env.server.Router()

	status, resp := env.doJSON(t, http.MethodGet, "/api/v1/jobs", "", nil)
	if status != http.StatusOK {
		t.Fatalf("jobs list: status %d", status)
	}
	list, ok := resp.Data.([]interface{})
	if !ok || len(list) != 2 {
		t.Fatalf("jobs list = %v", resp.Data)
	}

	// Nothing overdue in an empty ledger, the scan completes cleanly.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/jobs/overdue-check", "", nil)
	if status != http.StatusOK {
		t.Fatalf("overdue-check: status %d error %+v", status, resp.Error)
	}

	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/jobs/low-stock-check", "", nil)
	if status != http.StatusOK {
		t.Fatalf("low-stock-check: status %d error %+v", status, resp.Error)
	}
}

func newTestNotifier(db *database.DB) *notify.Notifier {
	return notify.NewNotifier(db, nil, nil, nil)
}
