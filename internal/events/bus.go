// Ledgerline - Retail Back-Office Alerts and Reporting
// Copyright 2026 Ledgerline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ledgerline/ledgerline

// Package events carries the in-process pub/sub bus. Document lifecycle
// events feed the notification rule engine and queued SMS jobs feed the
// gateway worker. The bus is a Watermill GoChannel: in-memory only, no
// persistence, scoped to the process lifetime.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/models"
)

// Topics.
const (
	TopicDocuments   = "documents"
	TopicSMSOutbound = "sms.outbound"
)

// SMSJob is the payload of a queued SMS send.
type SMSJob struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

// Bus wraps the GoChannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates the in-process bus. Buffer bounds how many messages a
// topic holds before publishers block.
func NewBus(buffer int64) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: buffer,
		}, newWatermillLogger()),
	}
}

// Publish marshals payload as JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload interface{}) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", topic, err)
	}
	return nil
}

// PublishDocumentEvent publishes a document lifecycle event.
func (b *Bus) PublishDocumentEvent(event *models.DocumentEvent) error {
	return b.Publish(TopicDocuments, event)
}

// PublishSMSJob queues an SMS send for the background worker.
func (b *Bus) PublishSMSJob(job *SMSJob) error {
	return b.Publish(TopicSMSOutbound, job)
}

// Subscribe returns the message channel for a topic. The channel closes
// when ctx is cancelled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// Decode unmarshals a message payload into v.
func Decode(msg *message.Message, v interface{}) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to decode message %s: %w", msg.UUID, err)
	}
	return nil
}
