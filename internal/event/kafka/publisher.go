// Package kafka binds the worker to its queue transport: consumers for the
// inbound purchase/processing topics and a publisher for outbound domain
// events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/gamepay/payments-worker/internal/domain"
)

// EventPublisher serializes domain events and writes them to their topics.
// Writers are cached per topic and reused across invocations.
type EventPublisher struct {
	logger         *slog.Logger
	brokers        []string
	eventsTopic    string
	completedTopic string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewEventPublisher(logger *slog.Logger, brokers []string, eventsTopic, completedTopic string) *EventPublisher {
	return &EventPublisher{
		logger:         logger,
		brokers:        brokers,
		eventsTopic:    eventsTopic,
		completedTopic: completedTopic,
		writers:        make(map[string]*kafka.Writer),
	}
}

// Publish emits one lifecycle event to the payment events topic, keyed by
// payment id so events for the same payment stay ordered.
func (p *EventPublisher) Publish(ctx context.Context, eventType domain.EventType, paymentID, correlationID uuid.UUID, data *string) error {
	ev := domain.PaymentEvent{
		PaymentID:     paymentID,
		CorrelationID: correlationID,
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		Data:          data,
	}

	if err := p.publish(ctx, p.eventsTopic, paymentID.String(), ev); err != nil {
		return fmt.Errorf("Publish: %s: %w", eventType, err)
	}

	p.logger.Info("event published",
		"event_type", eventType,
		"payment_id", paymentID,
		"correlation_id", correlationID,
	)
	return nil
}

// PublishPurchaseCompleted emits the cross-domain completion summary on the
// purchase-completed topic.
func (p *EventPublisher) PublishPurchaseCompleted(ctx context.Context, ev domain.PurchaseCompleted) error {
	if err := p.PublishToTopic(ctx, p.completedTopic, ev.PaymentID.String(), ev); err != nil {
		return fmt.Errorf("PublishPurchaseCompleted: %w", err)
	}

	p.logger.Info("purchase completed event published",
		"payment_id", ev.PaymentID,
		"status", ev.Status,
	)
	return nil
}

// PublishToTopic writes a payload to a named topic, for events whose
// destination is not one of the fixed lifecycle channels.
func (p *EventPublisher) PublishToTopic(ctx context.Context, topic, key string, payload any) error {
	if err := p.publish(ctx, topic, key, payload); err != nil {
		return fmt.Errorf("PublishToTopic: %s: %w", topic, err)
	}
	return nil
}

func (p *EventPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	msg := kafka.Message{Key: []byte(key), Value: value}
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (p *EventPublisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:     kafka.TCP(p.brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
		p.writers[topic] = w
	}
	return w
}

func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close writer %s: %w", topic, err)
		}
	}
	return firstErr
}
