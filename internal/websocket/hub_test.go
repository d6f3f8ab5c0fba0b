// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub creates and starts a hub for testing, stopping it on cleanup.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a client without a live connection.
func createTestClient(hub *Hub, username string) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		username: username,
		hub:      hub,
		send:     make(chan Message, 256),
	}
}

// registerClient registers a client and waits for registration to complete
func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func testNotification(user string) *models.NotificationLog {
	return &models.NotificationLog{
		ID:           "n-1",
		ForUser:      user,
		Subject:      "Invoice SINV-001 submitted",
		DocumentType: "Sales Invoice",
		DocumentName: "SINV-001",
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	checks := []struct {
		name   string
		check  bool
		errMsg string
	}{
		{"clients map", hub.clients != nil, "clients map not initialized"},
		{"outbound channel", hub.outbound != nil, "outbound channel not initialized"},
		{"Register channel", hub.Register != nil, "Register channel not initialized"},
		{"Unregister channel", hub.Unregister != nil, "Unregister channel not initialized"},
		{"empty clients", len(hub.clients) == 0, "clients map should be empty"},
	}

	for _, c := range checks {
		if !c.check {
			t.Error(c.errMsg)
		}
	}
}

func TestHubClientCount(t *testing.T) {
	hub := setupHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients initially, got %d", hub.ClientCount())
	}

	alice := createTestClient(hub, "alice")
	bob := createTestClient(hub, "bob")
	registerClient(hub, alice)
	registerClient(hub, bob)

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
	if hub.UserClientCount("alice") != 1 {
		t.Errorf("expected 1 session for alice, got %d", hub.UserClientCount("alice"))
	}

	hub.Unregister <- alice
	time.Sleep(20 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unregister, got %d", hub.ClientCount())
	}
}

func TestHubSendToUser(t *testing.T) {
	hub := setupHub(t)

	alice := createTestClient(hub, "alice")
	aliceSecond := createTestClient(hub, "alice")
	bob := createTestClient(hub, "bob")
	registerClient(hub, alice)
	registerClient(hub, aliceSecond)
	registerClient(hub, bob)

	hub.SendToUser("alice", testNotification("alice"))
	time.Sleep(20 * time.Millisecond)

	// Both of alice's sessions receive the notification.
	for i, c := range []*Client{alice, aliceSecond} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeNotification {
				t.Errorf("session %d: message type = %q, want %q", i, msg.Type, MessageTypeNotification)
			}
		default:
			t.Errorf("session %d: no message delivered", i)
		}
	}

	// Bob receives nothing.
	select {
	case msg := <-bob.send:
		t.Errorf("bob received unexpected message %+v", msg)
	default:
	}
}

func TestHubBroadcastDocumentUpdate(t *testing.T) {
	hub := setupHub(t)

	alice := createTestClient(hub, "alice")
	bob := createTestClient(hub, "bob")
	registerClient(hub, alice)
	registerClient(hub, bob)

	hub.BroadcastDocumentUpdate(&models.DocumentEvent{
		Doctype: "Sales Invoice",
		Name:    "SINV-001",
		Event:   models.EventSubmit,
	})
	time.Sleep(20 * time.Millisecond)

	for _, c := range []*Client{alice, bob} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeDocumentUpdate {
				t.Errorf("message type = %q, want %q", msg.Type, MessageTypeDocumentUpdate)
			}
		default:
			t.Errorf("client %q: no broadcast delivered", c.username)
		}
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	client := createTestClient(hub, "alice")
	registerClient(hub, client)

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after cancel")
	}

	if _, open := <-client.send; open {
		t.Error("client send channel still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after shutdown, want 0", hub.ClientCount())
	}
}

func TestNewClientAssignsIdentity(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, "alice")
	b := NewClient(hub, nil, "bob")

	if a.ID() == b.ID() {
		t.Error("client IDs not unique")
	}
	if a.Username() != "alice" || b.Username() != "bob" {
		t.Errorf("usernames = %q / %q", a.Username(), b.Username())
	}
}
