package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"otpgate/internal/platform/kafka/producer"
	"otpgate/pkg/requestcontext"
)

// LogPublisher writes audit events to the structured log. It is the
// fallback when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, event.Action,
		"log_type", "audit",
		"flow", event.Flow,
		"subject", event.Subject,
		"client_ip", event.ClientIP,
		"decision", event.Decision,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	return nil
}

// KafkaPublisher ships audit events to a Kafka topic, keyed by subject
// so one identity's events stay ordered within a partition.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaPublisher(prod *producer.Producer, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if prod == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("audit topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{producer: prod, topic: topic, logger: logger}, nil
}

func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	return p.producer.ProduceAsync(&producer.Message{
		Topic: p.topic,
		Key:   []byte(event.Subject),
		Value: value,
	})
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
)
