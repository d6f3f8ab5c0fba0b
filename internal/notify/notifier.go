// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
notifier.go - Notification Delivery

Delivers a rendered notification to a set of users. Every delivery
writes an in-app notification log row and pushes it to the user's live
WebSocket sessions; the email and SMS channels layer their transport on
top of that baseline, so a user always has an in-app record even when
the extra channel fails.

Per-user failures are logged and counted but never abort delivery to
the remaining recipients.
*/

package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/metrics"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/sms"
	"github.com/ledgerline/ledgerline/internal/websocket"
)

// Delivery is one rendered notification ready to fan out.
type Delivery struct {
	Subject      string
	Message      string
	Channel      string
	DocumentType string
	DocumentName string
	FromUser     string
}

// Notifier fans rendered notifications out to users.
type Notifier struct {
	db     *database.DB
	hub    *websocket.Hub
	mailer *Mailer
	sms    *sms.Service
	log    zerolog.Logger
}

// NewNotifier wires the delivery channels together. hub, mailer and
// smsService may each be nil, which disables that transport.
func NewNotifier(db *database.DB, hub *websocket.Hub, mailer *Mailer, smsService *sms.Service) *Notifier {
	return &Notifier{
		db:     db,
		hub:    hub,
		mailer: mailer,
		sms:    smsService,
		log:    logging.Component("notify"),
	}
}

// NotifyAll delivers to every user, returning the number of successful
// deliveries. Failures are logged per user.
func (n *Notifier) NotifyAll(ctx context.Context, users []models.User, d Delivery) int {
	sent := 0
	for i := range users {
		if err := n.Notify(ctx, &users[i], d); err != nil {
			n.log.Error().Err(err).
				Str("user", users[i].Username).
				Str("channel", d.Channel).
				Str("subject", d.Subject).
				Msg("Notification delivery failed")
			continue
		}
		sent++
	}
	return sent
}

// Notify delivers one notification to one user.
func (n *Notifier) Notify(ctx context.Context, user *models.User, d Delivery) error {
	channel := d.Channel
	if channel == "" {
		channel = models.ChannelInApp
	}

	entry := &models.NotificationLog{
		Subject:      d.Subject,
		Message:      d.Message,
		ForUser:      user.Username,
		Channel:      channel,
		DocumentType: d.DocumentType,
		DocumentName: d.DocumentName,
		FromUser:     d.FromUser,
	}
	if err := n.db.InsertNotificationLog(ctx, entry); err != nil {
		metrics.RecordNotification(channel, true)
		return fmt.Errorf("insert notification log: %w", err)
	}

	if n.hub != nil {
		n.hub.SendToUser(user.Username, entry)
	}

	var extraErr error
	switch channel {
	case models.ChannelEmail:
		extraErr = n.sendEmail(ctx, user, d)
	case models.ChannelSMS:
		extraErr = n.sendSMS(ctx, user, d)
	}
	if extraErr != nil {
		metrics.RecordNotification(channel, true)
		return extraErr
	}

	metrics.RecordNotification(channel, false)
	n.log.Debug().
		Str("user", user.Username).
		Str("channel", channel).
		Str("document", d.DocumentName).
		Msg("Notification delivered")
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, user *models.User, d Delivery) error {
	if n.mailer == nil || !n.mailer.Enabled() {
		return fmt.Errorf("email channel not configured")
	}
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", user.Username)
	}
	return n.mailer.Send(ctx, user.Email, d.Subject, HTMLToPlaintext(d.Message))
}

func (n *Notifier) sendSMS(ctx context.Context, user *models.User, d Delivery) error {
	if n.sms == nil || !n.sms.Enabled() {
		return fmt.Errorf("sms channel not configured")
	}
	if user.Mobile == "" {
		return fmt.Errorf("user %s has no mobile number", user.Username)
	}
	message := HTMLToPlaintext(d.Message)
	if message == "" {
		message = d.Subject
	}
	if _, err := n.sms.Enqueue(ctx, []string{user.Mobile}, message); err != nil {
		return fmt.Errorf("queue sms: %w", err)
	}
	return nil
}
