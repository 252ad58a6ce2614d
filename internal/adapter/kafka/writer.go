package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/layer-catalog-service/internal/config"
	"github.com/couchcryptid/layer-catalog-service/internal/domain"
)

// Writer publishes harvested catalog rows to a Kafka topic.
// It implements harvest.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured layer topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish sends every record in a single WriteMessages call. Records are keyed
// by layer id so updates to one layer stay on one partition.
func (w *Writer) Publish(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d layers: %w", len(msgs), err)
	}
	w.logger.Debug("layers published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a catalog row into a Kafka message.
func serializeToMessage(rec domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize layer %s: %w", rec[domain.FieldID], err)
	}
	return kafkago.Message{
		Key:   []byte(rec[domain.FieldID]),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "layer_type", Value: []byte(rec[domain.FieldType])},
			{Key: "modified", Value: []byte(rec[domain.FieldModified])},
			{Key: "last_updated", Value: []byte(rec[domain.FieldLastUpdated])},
		},
	}, nil
}
