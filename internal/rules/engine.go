// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

/*
engine.go - Notification Rule Engine

Consumes document lifecycle events from the bus and fires the matching
notification rules. A save event is skipped when it is really a
docstatus transition (submit and cancel publish their own events) or
when nothing meaningful changed. Rule failures are logged per rule and
never block the remaining rules or the event stream.
*/

package rules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/database"
	"github.com/ledgerline/ledgerline/internal/events"
	"github.com/ledgerline/ledgerline/internal/logging"
	"github.com/ledgerline/ledgerline/internal/metrics"
	"github.com/ledgerline/ledgerline/internal/models"
	"github.com/ledgerline/ledgerline/internal/notify"
	"github.com/ledgerline/ledgerline/internal/templates"
)

// Fields that change on every write and never count as a meaningful
// document change.
var ignoredChangeFields = map[string]bool{
	"modified":     true,
	"modified_by":  true,
	"amended_from": true,
	"_user_tags":   true,
	"_comments":    true,
	"_assign":      true,
	"_liked_by":    true,
}

// Engine evaluates notification rules against document events.
type Engine struct {
	db        *database.DB
	notifier  *notify.Notifier
	templates *templates.Engine
	log       zerolog.Logger
}

// NewEngine builds the rule engine.
func NewEngine(db *database.DB, notifier *notify.Notifier, tmpl *templates.Engine) *Engine {
	return &Engine{
		db:        db,
		notifier:  notifier,
		templates: tmpl,
		log:       logging.Component("rules"),
	}
}

// Run consumes document events from the bus until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, bus *events.Bus) error {
	msgs, err := bus.Subscribe(ctx, events.TopicDocuments)
	if err != nil {
		return fmt.Errorf("subscribe to document events: %w", err)
	}
	e.log.Info().Msg("Rule engine started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("Rule engine stopping")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var evt models.DocumentEvent
			if err := events.Decode(msg, &evt); err != nil {
				e.log.Error().Err(err).Msg("Dropping undecodable document event")
				msg.Ack()
				continue
			}
			e.HandleEvent(ctx, &evt)
			msg.Ack()
		}
	}
}

// HandleEvent runs every enabled rule matching the event's doctype and
// trigger. Exported so document writes can also evaluate rules inline.
func (e *Engine) HandleEvent(ctx context.Context, evt *models.DocumentEvent) {
	if evt.Event == models.EventSave && evt.Previous != nil {
		if docstatusChanged(evt) {
			e.log.Debug().
				Str("doctype", evt.Doctype).
				Str("name", evt.Name).
				Msg("Skipping save event for docstatus transition")
			return
		}
		if !hasActualChanges(evt.Fields, evt.Previous) {
			e.log.Debug().
				Str("doctype", evt.Doctype).
				Str("name", evt.Name).
				Msg("Skipping save event with no meaningful changes")
			return
		}
	}

	rules, err := e.db.ListRulesForEvent(ctx, evt.Doctype, evt.Event)
	if err != nil {
		e.log.Error().Err(err).
			Str("doctype", evt.Doctype).
			Str("event", evt.Event).
			Msg("Failed to load notification rules")
		return
	}

	for i := range rules {
		e.processRule(ctx, &rules[i], evt)
	}
}

func (e *Engine) processRule(ctx context.Context, rule *models.NotificationRule, evt *models.DocumentEvent) {
	ruleLog := e.log.With().
		Str("rule", rule.Name).
		Str("doctype", evt.Doctype).
		Str("document", evt.Name).
		Logger()

	matched, err := EvaluateCondition(rule.Condition, evt.Fields)
	if err != nil {
		metrics.RuleEvaluations.WithLabelValues("error").Inc()
		ruleLog.Error().Err(err).Str("condition", rule.Condition).Msg("Condition evaluation failed")
		return
	}
	if !matched {
		metrics.RuleEvaluations.WithLabelValues("skipped").Inc()
		return
	}

	users, err := e.resolveRecipients(ctx, rule.Recipients)
	if err != nil {
		metrics.RuleEvaluations.WithLabelValues("error").Inc()
		ruleLog.Error().Err(err).Msg("Failed to resolve recipients")
		return
	}
	if len(users) == 0 {
		metrics.RuleEvaluations.WithLabelValues("error").Inc()
		ruleLog.Error().Msg("Rule matched but has no valid recipients")
		return
	}

	data := templates.BuildContext(evt)
	subject, err := e.templates.RenderSubject(rule.SubjectTemplate, data)
	if err != nil {
		metrics.RuleEvaluations.WithLabelValues("error").Inc()
		ruleLog.Error().Err(err).Msg("Failed to render subject template")
		return
	}
	message, err := e.templates.RenderMessage(rule.MessageTemplate, data)
	if err != nil {
		metrics.RuleEvaluations.WithLabelValues("error").Inc()
		ruleLog.Error().Err(err).Msg("Failed to render message template")
		return
	}

	sent := e.notifier.NotifyAll(ctx, users, notify.Delivery{
		Subject:      subject,
		Message:      message,
		Channel:      rule.Channel,
		DocumentType: evt.Doctype,
		DocumentName: evt.Name,
		FromUser:     evt.User,
	})

	metrics.RuleEvaluations.WithLabelValues("fired").Inc()
	ruleLog.Info().
		Int("recipients", len(users)).
		Int("delivered", sent).
		Str("channel", rule.Channel).
		Msg("Notification rule fired")
}

// docstatusChanged reports whether a save event is actually a docstatus
// transition. Transitions publish dedicated submit and cancel events,
// so rules bound to save must not also fire.
func docstatusChanged(evt *models.DocumentEvent) bool {
	prev, ok := evt.Previous["docstatus"]
	if !ok {
		return false
	}
	prevStatus, ok := toNumber(prev)
	if !ok {
		return false
	}
	return int(prevStatus) != evt.Docstatus
}

// hasActualChanges compares the new and previous field maps, ignoring
// bookkeeping fields that change on every write.
func hasActualChanges(fields, previous map[string]interface{}) bool {
	for k, v := range fields {
		if ignoredChangeFields[k] {
			continue
		}
		old, existed := previous[k]
		if !existed || fmt.Sprint(old) != fmt.Sprint(v) {
			return true
		}
	}
	for k := range previous {
		if ignoredChangeFields[k] {
			continue
		}
		if _, exists := fields[k]; !exists {
			return true
		}
	}
	return false
}
