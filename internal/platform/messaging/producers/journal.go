package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
)

// JournalProducer streams committed journal entries. Messages are keyed by
// transaction id so one transaction's history stays on one partition.
type JournalProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

var _ MessagePublisher = (*JournalProducer)(nil)

// NewJournalProducer ensures the event topic exists and opens a synchronous
// writer; the relay only marks an entry processed once the broker has it.
func NewJournalProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*JournalProducer, error) {
	if cfg.EventTopic == "" {
		return nil, fmt.Errorf("kafka event topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.EventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure event topic %s exists: %w", cfg.EventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &JournalProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventTopic,
	}, nil
}

// Publish writes value as JSON under key
func (p *JournalProducer) Publish(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal journal message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}
	if entry, ok := value.(*journal.Entry); ok {
		msg.Headers = []kafka.Header{
			{Key: "event-type", Value: []byte(entry.EventType)},
			{Key: "to-state", Value: []byte(entry.ToState)},
		}
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish journal message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish journal message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published journal message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *JournalProducer) Close() error {
	p.logger.Info("Closing journal Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close journal kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
