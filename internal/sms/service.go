// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

package sms

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/metrics"
	"github.com/ledgerline/ledgerline/internal/models"
)

// Gateway is the client surface the service depends on. Satisfied by
// *Client and by test fakes.
type Gateway interface {
	SendSMS(ctx context.Context, mobile, message string) (*SendResult, error)
	SendBulk(ctx context.Context, mobiles []string, message string) ([]*SendResult, error)
	CheckBalance(ctx context.Context) (*BalanceResult, error)
}

// Service coordinates gateway sends, audit logging, and the async queue.
type Service struct {
	cfg     *config.SMSConfig
	gateway Gateway
	db      *database.DB
	bus     *events.Bus
	log     zerolog.Logger
}

// NewService wires a gateway client to the audit log and event bus.
func NewService(cfg *config.SMSConfig, gateway Gateway, db *database.DB, bus *events.Bus) *Service {
	return &Service{
		cfg:     cfg,
		gateway: gateway,
		db:      db,
		bus:     bus,
		log:     logging.Component("sms"),
	}
}

// Enabled reports whether the gateway is configured for sending.
func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// Send delivers one message to each recipient individually and records
// a single audit row covering the batch. Individual failures do not
// abort the remaining recipients.
func (s *Service) Send(ctx context.Context, recipients []string, message string) (*models.SMSLog, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := ValidateMessage(message, s.cfg.CharLimit); err != nil {
		return nil, err
	}

	normalized := normalizeAll(recipients)
	entry := &models.SMSLog{
		ID:             uuid.New().String(),
		SentOn:         time.Now().UTC(),
		Message:        message,
		RequestedCount: len(normalized),
		Recipients:     normalized,
	}

	var lastRaw string
	var errMsgs []string
	for _, mobile := range normalized {
		result, err := s.gateway.SendSMS(ctx, mobile, message)
		if err != nil {
			s.log.Error().Err(err).Str("mobile", mobile).Msg("sms send failed")
			errMsgs = append(errMsgs, mobile+": "+err.Error())
			continue
		}
		lastRaw = result.Raw
		if result.Success {
			entry.SentCount++
			metrics.SMSMessagesSent.Inc()
			continue
		}
		s.log.Error().
			Str("mobile", mobile).
			Str("code", result.ResponseCode).
			Str("status", result.StatusMessage).
			Str("action", result.ActionRequired).
			Msg("sms rejected by gateway")
		errMsgs = append(errMsgs, mobile+": "+result.Error)
	}

	entry.Status = statusFor(entry.SentCount, entry.RequestedCount)
	entry.VendorResponse = lastRaw
	entry.Error = strings.Join(errMsgs, "; ")

	if err := s.db.InsertSMSLog(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("failed to record sms log")
	}
	return entry, nil
}

// SendBulk delivers one message to many recipients through the vendor's
// bulk endpoint and records one audit row.
func (s *Service) SendBulk(ctx context.Context, recipients []string, message string) (*models.SMSLog, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := ValidateMessage(message, s.cfg.CharLimit); err != nil {
		return nil, err
	}

	normalized := normalizeAll(recipients)
	entry := &models.SMSLog{
		ID:             uuid.New().String(),
		SentOn:         time.Now().UTC(),
		Message:        message,
		RequestedCount: len(normalized),
		Recipients:     normalized,
	}

	results, err := s.gateway.SendBulk(ctx, normalized, message)
	if err != nil {
		entry.Status = models.SMSStatusFailed
		entry.Error = err.Error()
		if dbErr := s.db.InsertSMSLog(ctx, entry); dbErr != nil {
			s.log.Error().Err(dbErr).Msg("failed to record sms log")
		}
		return entry, err
	}

	var raws, errMsgs []string
	for _, r := range results {
		if r.Success {
			entry.SentCount += r.Sent
			metrics.SMSMessagesSent.Add(float64(r.Sent))
		} else if r.Error != "" {
			errMsgs = append(errMsgs, r.Error)
		}
		if r.Raw != "" {
			raws = append(raws, r.Raw)
		}
	}

	entry.Status = statusFor(entry.SentCount, entry.RequestedCount)
	entry.VendorResponse = strings.Join(raws, "\n")
	entry.Error = strings.Join(errMsgs, "; ")

	if err := s.db.InsertSMSLog(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("failed to record sms log")
	}
	return entry, nil
}

// Enqueue queues a send for the background worker and records a queued
// audit row so the request is visible immediately.
func (s *Service) Enqueue(ctx context.Context, recipients []string, message string) (*models.SMSLog, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	if err := ValidateMessage(message, s.cfg.CharLimit); err != nil {
		return nil, err
	}

	normalized := normalizeAll(recipients)
	entry := &models.SMSLog{
		ID:             uuid.New().String(),
		SentOn:         time.Now().UTC(),
		Message:        message,
		RequestedCount: len(normalized),
		Recipients:     normalized,
		Status:         models.SMSStatusQueued,
	}
	if err := s.db.InsertSMSLog(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("failed to record queued sms log")
	}

	if err := s.bus.PublishSMSJob(&events.SMSJob{Recipients: normalized, Message: message}); err != nil {
		return nil, err
	}
	return entry, nil
}

// Balance proxies a gateway balance check.
func (s *Service) Balance(ctx context.Context) (*BalanceResult, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	return s.gateway.CheckBalance(ctx)
}

// RunWorker consumes queued SMS jobs until the context is canceled.
// Designed to run under suture supervision.
func (s *Service) RunWorker(ctx context.Context) error {
	msgs, err := s.bus.Subscribe(ctx, events.TopicSMSOutbound)
	if err != nil {
		return err
	}
	s.log.Info().Msg("sms worker started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sms worker stopped")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				s.log.Info().Msg("sms worker channel closed")
				return nil
			}

			var job events.SMSJob
			if err := events.Decode(msg, &job); err != nil {
				s.log.Error().Err(err).Msg("failed to decode sms job")
				msg.Ack()
				continue
			}

			// Bulk endpoint for fan-out jobs, single send otherwise.
			if len(job.Recipients) > 1 {
				_, err = s.SendBulk(ctx, job.Recipients, job.Message)
			} else {
				_, err = s.Send(ctx, job.Recipients, job.Message)
			}
			if err != nil {
				s.log.Error().Err(err).Int("recipients", len(job.Recipients)).Msg("queued sms job failed")
			}
			msg.Ack()
		}
	}
}

// normalizeAll normalizes and drops empty recipient entries.
func normalizeAll(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if n := NormalizeMobile(r); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// statusFor classifies a batch by how many sends succeeded.
func statusFor(sent, requested int) string {
	switch {
	case requested == 0 || sent == 0:
		return models.SMSStatusFailed
	case sent < requested:
		return models.SMSStatusPartial
	default:
		return models.SMSStatusSent
	}
}
