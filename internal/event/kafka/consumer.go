package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gamepay/payments-worker/internal/domain"
	"github.com/gamepay/payments-worker/internal/observability"
)

// errMalformed marks messages that cannot be decoded at all; they go
// straight to the DLQ without retry.
var errMalformed = errors.New("malformed message")

type workflow interface {
	CreatePayment(ctx context.Context, req domain.PurchaseRequested) error
	ProcessPayment(ctx context.Context, msg domain.ProcessingMessage) error
}

type deadLetterer interface {
	Publish(ctx context.Context, original kafka.Message, cause error) error
}

// Consumer reads one topic and feeds each message to a workflow entry
// point. At-least-once semantics: FetchMessage, handle, then commit.
// Concurrency across messages is owned here, not by the workflow.
type Consumer struct {
	logger      *slog.Logger
	reader      *kafka.Reader
	dlq         deadLetterer
	topic       string
	maxAttempts int
	backoffBase time.Duration
	handle      func(ctx context.Context, m kafka.Message) error
}

// NewCreationConsumer consumes purchase-requested messages into the
// creation path.
func NewCreationConsumer(logger *slog.Logger, brokers []string, groupID, topic string, svc workflow, dlq deadLetterer, maxAttempts int, backoffBase time.Duration) *Consumer {
	c := newConsumer(logger, brokers, groupID, topic, dlq, maxAttempts, backoffBase)
	c.handle = func(ctx context.Context, m kafka.Message) error {
		var req domain.PurchaseRequested
		if err := json.Unmarshal(m.Value, &req); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return svc.CreatePayment(ctx, req)
	}
	return c
}

// NewProcessingConsumer consumes payment-processing messages into the
// processing path.
func NewProcessingConsumer(logger *slog.Logger, brokers []string, groupID, topic string, svc workflow, dlq deadLetterer, maxAttempts int, backoffBase time.Duration) *Consumer {
	c := newConsumer(logger, brokers, groupID, topic, dlq, maxAttempts, backoffBase)
	c.handle = func(ctx context.Context, m kafka.Message) error {
		var msg domain.ProcessingMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return svc.ProcessPayment(ctx, msg)
	}
	return c
}

func newConsumer(logger *slog.Logger, brokers []string, groupID, topic string, dlq deadLetterer, maxAttempts int, backoffBase time.Duration) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Consumer{
		logger:      logger.With("topic", topic),
		reader:      reader,
		dlq:         dlq,
		topic:       topic,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// Start blocks until ctx is cancelled. Offsets are committed only once a
// message's fate is settled: handled, dropped, or parked in the DLQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		"group_id", c.reader.Config().GroupID,
		"max_attempts", c.maxAttempts,
		"backoff_base", c.backoffBase,
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}

		if !c.processMessage(ctx, m) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("failed to commit offset",
				"error", err,
				"partition", m.Partition,
				"offset", m.Offset,
			)
		}
	}
}

// processMessage settles one message and reports whether its offset should
// be committed.
func (c *Consumer) processMessage(ctx context.Context, m kafka.Message) bool {
	err := c.handleWithRetry(ctx, m)

	switch {
	case err == nil:
		observability.CountMessage(c.topic, "ok")
		return true

	case errors.Is(err, errMalformed):
		return c.park(ctx, m, err)

	case errors.Is(err, domain.ErrInvalidMessage):
		// Never retried; dropped after logging.
		c.logger.Error("dropping invalid message",
			"error", err,
			"partition", m.Partition,
			"offset", m.Offset,
		)
		observability.CountMessage(c.topic, "dropped")
		return true

	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDataInconsistency):
		// Terminal outcome already recorded in the event stream.
		c.logger.Warn("message settled with terminal failure", "error", err)
		observability.CountMessage(c.topic, "failed")
		return true

	case ctx.Err() != nil:
		return false

	default:
		c.logger.Error("message handling exhausted retries, sending to DLQ",
			"error", err,
			"partition", m.Partition,
			"offset", m.Offset,
		)
		return c.park(ctx, m, err)
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, m kafka.Message) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.backoffBase * time.Duration(1<<uint(attempt-2))
			c.logger.Info("retrying message",
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			observability.CountMessage(c.topic, "retried")
		}

		err = c.handle(ctx, m)
		if err == nil || isPermanent(err) || ctx.Err() != nil {
			return err
		}

		c.logger.Error("message handling failed", "attempt", attempt, "error", err)
	}
	return err
}

func (c *Consumer) park(ctx context.Context, m kafka.Message, cause error) bool {
	if err := c.dlq.Publish(ctx, m, cause); err != nil {
		c.logger.Error("failed to publish to DLQ, not committing", "error", err)
		return false
	}
	observability.CountMessage(c.topic, "dlq")
	return true
}

func isPermanent(err error) bool {
	return errors.Is(err, errMalformed) ||
		errors.Is(err, domain.ErrInvalidMessage) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrDataInconsistency)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
