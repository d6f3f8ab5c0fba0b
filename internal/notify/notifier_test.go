// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package notify

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/models"
)

//nolint:gochecknoinits // silence logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNotifierInAppDelivery(t *testing.T) {
	db := newTestDB(t)
	n := NewNotifier(db, nil, nil, nil)

	user := models.User{Username: "cashier1", Enabled: true}
	err := n.Notify(context.Background(), &user, Delivery{
		Subject:      "Invoice SINV-0001 submitted",
		Message:      "Total: $ 150.00",
		Channel:      models.ChannelInApp,
		DocumentType: "Sales Invoice",
		DocumentName: "SINV-0001",
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	logs, err := db.ListNotificationsForUser(context.Background(), "cashier1", 10)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(logs))
	}
	got := logs[0]
	if got.Subject != "Invoice SINV-0001 submitted" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.DocumentName != "SINV-0001" || got.DocumentType != "Sales Invoice" {
		t.Errorf("document ref = %s/%s", got.DocumentType, got.DocumentName)
	}
	if got.Read {
		t.Error("new notification should be unread")
	}
}

func TestNotifierDefaultsChannelToInApp(t *testing.T) {
	db := newTestDB(t)
	n := NewNotifier(db, nil, nil, nil)

	user := models.User{Username: "manager1", Enabled: true}
	if err := n.Notify(context.Background(), &user, Delivery{Subject: "hello"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	logs, err := db.ListNotificationsForUser(context.Background(), "manager1", 10)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Channel != models.ChannelInApp {
		t.Fatalf("expected one inapp notification, got %+v", logs)
	}
}

func TestNotifierEmailChannelUnconfigured(t *testing.T) {
	db := newTestDB(t)
	n := NewNotifier(db, nil, nil, nil)

	user := models.User{Username: "acct1", Email: "acct1@example.com", Enabled: true}
	err := n.Notify(context.Background(), &user, Delivery{
		Subject: "Daily summary",
		Channel: models.ChannelEmail,
	})
	if err == nil {
		t.Fatal("expected error when email channel is unconfigured")
	}

	// The in-app record is still written before the email attempt.
	logs, _ := db.ListNotificationsForUser(context.Background(), "acct1", 10)
	if len(logs) != 1 {
		t.Fatalf("expected the in-app record to persist, got %d rows", len(logs))
	}
}

func TestNotifierSMSRequiresMobile(t *testing.T) {
	db := newTestDB(t)
	n := NewNotifier(db, nil, nil, nil)

	user := models.User{Username: "driver1", Enabled: true}
	err := n.Notify(context.Background(), &user, Delivery{
		Subject: "Stock alert",
		Channel: models.ChannelSMS,
	})
	if err == nil {
		t.Fatal("expected error for user without a mobile number")
	}
}

func TestNotifyAllContinuesAfterFailure(t *testing.T) {
	db := newTestDB(t)
	n := NewNotifier(db, nil, nil, nil)

	users := []models.User{
		{Username: "ok1", Enabled: true},
		{Username: "bad1", Email: "", Enabled: true},
		{Username: "ok2", Enabled: true},
	}
	// Middle user fails: email channel with no mailer. Deliver in-app
	// to the others via separate calls through NotifyAll.
	sent := n.NotifyAll(context.Background(), users, Delivery{Subject: "ping"})
	if sent != 3 {
		t.Fatalf("in-app NotifyAll sent = %d, want 3", sent)
	}

	sent = n.NotifyAll(context.Background(), users, Delivery{
		Subject: "mail",
		Channel: models.ChannelEmail,
	})
	if sent != 0 {
		t.Fatalf("email NotifyAll with no mailer sent = %d, want 0", sent)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "user@example.com", false},
		{"empty", "", true},
		{"missing at", "userexample.com", true},
		{"missing domain dot", "user@localhost", true},
		{"missing local part", "@example.com", true},
		{"double at", "a@b@example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestHTMLToPlaintext(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain passthrough", "Invoice overdue", "Invoice overdue"},
		{"strips tags", "<b>Invoice</b> <i>overdue</i>", "Invoice overdue"},
		{"br becomes newline", "line one<br>line two", "line one\nline two"},
		{"block close becomes newline", "<p>first</p><p>second</p>", "first\nsecond"},
		{"entities decoded", "Tom &amp; Jerry &lt;demo&gt;", "Tom & Jerry <demo>"},
		{"collapses blank runs", "a<br><br><br><br>b", "a\n\nb"},
		{"trims edges", "  <div>hello</div>  ", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToPlaintext(tt.in); got != tt.want {
				t.Errorf("HTMLToPlaintext(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMailerBuildMessage(t *testing.T) {
	m := NewMailer(&config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "alerts@example.com",
	})
	msg := m.buildMessage("user@example.com", "Test subject", "Body text")
	for _, want := range []string{
		"From: Ledgerline <alerts@example.com>",
		"To: user@example.com",
		"Subject: Test subject",
		"Content-Type: text/plain; charset=UTF-8",
		"Body text",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.Contains(msg, "\r\n\r\n") {
		t.Error("message missing header/body separator")
	}
}

func TestMailerDisabled(t *testing.T) {
	m := NewMailer(&config.EmailConfig{Enabled: false})
	if m.Enabled() {
		t.Error("mailer should be disabled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Send(ctx, "user@example.com", "s", "b"); err == nil {
		t.Error("Send() on disabled mailer should error")
	}
}
