// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/metrics"
	"github.com/ledgerline/ledgerline/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeNotification     = "notification"
	MessageTypeNotificationRead = "notification_read"
	MessageTypeDocumentUpdate   = "document_update"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// directed pairs a message with an optional target user. An empty user
// means broadcast to everyone.
type directed struct {
	user    string
	message Message
}

// Hub maintains the set of active clients and routes messages to them.
// Clients register with a username so notifications can target the
// recipient rather than every open session.
type Hub struct {
	clients    map[*Client]bool
	outbound   chan directed
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		outbound:   make(chan directed, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled:
//  1. All connected clients are gracefully closed
//  2. The method returns ctx.Err()
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Outbound messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: Handle outbound messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user", client.username).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user", client.username).Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all connected clients and logs structured
// shutdown information. Context cancellation is expected behavior during
// graceful shutdown, so ctx.Err() is not logged as an error.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	reason := getShutdownReason(ctx)
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// deliver sends a message to the matching clients in a deterministic order.
// DETERMINISM: Sorts clients by ID so message delivery order is
// reproducible in tests and under load.
func (h *Hub) deliver(msg directed) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if msg.user == "" || client.username == msg.user {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	for _, client := range clients {
		select {
		case client.send <- msg.message:
			metrics.WSMessagesSent.Inc()
		default:
			// Channel full or closed, mark for removal
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
}

// closeAllClients gracefully closes all connected WebSocket clients.
// DETERMINISM: Closes clients in ID order for consistent shutdown behavior.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// SendToUser delivers a notification to every open session of one user.
func (h *Hub) SendToUser(username string, log *models.NotificationLog) {
	msg := directed{
		user: username,
		message: Message{
			Type: MessageTypeNotification,
			Data: log,
		},
	}

	select {
	case h.outbound <- msg:
	default:
		logging.Warn().Str("user", username).Msg("websocket outbound channel full, dropping notification")
	}
}

// BroadcastDocumentUpdate notifies all clients that a document changed state.
func (h *Hub) BroadcastDocumentUpdate(evt *models.DocumentEvent) {
	msg := directed{
		message: Message{
			Type: MessageTypeDocumentUpdate,
			Data: evt,
		},
	}

	select {
	case h.outbound <- msg:
	default:
		logging.Warn().Str("doctype", evt.Doctype).Msg("websocket outbound channel full, dropping document update")
	}
}

// BroadcastJSON sends an arbitrary typed message to all connected clients.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	msg := directed{
		message: Message{
			Type: messageType,
			Data: data,
		},
	}

	select {
	case h.outbound <- msg:
	default:
		logging.Warn().Str("message_type", messageType).Msg("websocket outbound channel full, dropping JSON message")
	}
}

// SendJSONToUser sends an arbitrary typed message to every open session
// of one user.
func (h *Hub) SendJSONToUser(username, messageType string, data interface{}) {
	msg := directed{
		user: username,
		message: Message{
			Type: messageType,
			Data: data,
		},
	}

	select {
	case h.outbound <- msg:
	default:
		logging.Warn().Str("user", username).Str("message_type", messageType).Msg("websocket outbound channel full, dropping JSON message")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserClientCount returns how many open sessions a user has.
func (h *Hub) UserClientCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.username == username {
			n++
		}
	}
	return n
}
