package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes events to a topic keyed by ledger entry id, so every
// event for an entry lands on the same partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("audit kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("audit kafka sink requires a topic")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			// Retries belong to the outbox worker
			MaxAttempts: 1,
		},
	}, nil
}

func (s *KafkaSink) Deliver(ctx context.Context, event models.AuditEvent) error {
	err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntryId),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.Id)},
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	})
	if err != nil {
		if errors.Is(err, kafka.MessageSizeTooLarge) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return fmt.Errorf("publishing audit event: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
