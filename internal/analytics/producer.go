// Package analytics publishes one event per answered question to Kafka.
// Publishing is asynchronous and lossy: when the buffer is full events are
// dropped rather than slowing down answers.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

// Publisher writes a batch of events somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, events []models.AnswerEvent) error
	Close() error
}

// KafkaProducer publishes JSON-encoded answer events to a topic. Events are
// keyed by user id so one user's questions stay ordered within a partition.
type KafkaProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaProducer creates a producer for topic on brokers.
func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{
		writer: w,
		logger: utils.OrNop(logger).With(zap.String("component", "kafka-producer"), zap.String("topic", topic)),
	}
}

// Publish writes events in a single call.
func (p *KafkaProducer) Publish(ctx context.Context, events []models.AnswerEvent) error {
	msgs, err := encodeMessages(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing %d events to kafka: %w", len(msgs), err)
	}
	p.logger.Debug("events published", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func encodeMessages(events []models.AnswerEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshaling event: %w", err)
		}
		key := ev.UserID
		if key == "" {
			key = "anonymous"
		}
		msgs = append(msgs, kafka.Message{Key: []byte(key), Value: value, Time: ev.Timestamp})
	}
	return msgs, nil
}
