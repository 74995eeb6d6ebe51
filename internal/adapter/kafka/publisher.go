package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-sensor-etl/internal/config"
	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

// Publisher produces one message per committed snapshot.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

func (p *Publisher) Name() string { return "kafka" }

// Mirror publishes snap keyed by its cycle id.
func (p *Publisher) Mirror(ctx context.Context, snap domain.Snapshot, _ []domain.RawRecord) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.CycleID, err)
	}
	p.logger.Debug("snapshot published", "cycle_id", snap.CycleID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.CycleID),
		Value: data,
		Time:  snap.TakenAt,
		Headers: []kafkago.Header{
			{Key: "cycle_id", Value: []byte(snap.CycleID)},
			{Key: "taken_at", Value: []byte(snap.TakenAt.Format(time.RFC3339))},
		},
	}, nil
}
