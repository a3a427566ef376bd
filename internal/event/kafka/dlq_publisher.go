package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQPublisher parks messages that cannot be processed so the inbound
// partition is never blocked by a poison message.
type DLQPublisher struct {
	logger *slog.Logger
	writer *kafka.Writer
}

func NewDLQPublisher(logger *slog.Logger, brokers []string, topic string) *DLQPublisher {
	return &DLQPublisher{
		logger: logger,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

type dlqMessage struct {
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int       `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	OriginalKey       string    `json:"original_key"`
	OriginalValue     string    `json:"original_value"`
	ErrorMessage      string    `json:"error_message"`
	FailedAt          time.Time `json:"failed_at"`
}

func (p *DLQPublisher) Publish(ctx context.Context, original kafka.Message, cause error) error {
	errorMsg := ""
	if cause != nil {
		errorMsg = cause.Error()
	}

	value, err := json.Marshal(dlqMessage{
		OriginalTopic:     original.Topic,
		OriginalPartition: original.Partition,
		OriginalOffset:    original.Offset,
		OriginalKey:       string(original.Key),
		OriginalValue:     string(original.Value),
		ErrorMessage:      errorMsg,
		FailedAt:          time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: original.Key, Value: value}); err != nil {
		return fmt.Errorf("Publish: write: %w", err)
	}

	p.logger.Warn("message parked in DLQ",
		"original_topic", original.Topic,
		"original_partition", original.Partition,
		"original_offset", original.Offset,
		"error", errorMsg,
	)
	return nil
}

func (p *DLQPublisher) Close() error {
	return p.writer.Close()
}
