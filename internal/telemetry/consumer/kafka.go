// Package consumer reads the invitation event stream back from Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"b2b-tenancy/internal/telemetry/domain"
)

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler processes one decoded invitation event.
type Handler func(ctx context.Context, event *domain.InvitationEvent) error

// KafkaConsumer decodes invitation events from a consumer group.
type KafkaConsumer struct {
	reader  messageReader
	logger  *zap.Logger
	timeout time.Duration
}

// NewKafkaConsumer joins groupID on topic. Call Close when done.
func NewKafkaConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       10e6, // 10MB
			MaxWait:        1 * time.Second,
			CommitInterval: time.Second,
		}),
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// Run reads until ctx is cancelled. Messages that do not decode and handler
// failures are logged and skipped; the stream is at-most-once per group.
func (c *KafkaConsumer) Run(ctx context.Context, h Handler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("kafka read failed", zap.Error(err))
			continue
		}

		var event domain.InvitationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warn("skipping undecodable invitation event",
				zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}

		hctx, cancel := context.WithTimeout(ctx, c.timeout)
		if err := h(hctx, &event); err != nil {
			c.logger.Error("invitation event handler failed",
				zap.String("event_type", event.Type),
				zap.String("invitation_id", event.InvitationID),
				zap.Error(err))
		}
		cancel()
	}
}

// Close leaves the consumer group.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
