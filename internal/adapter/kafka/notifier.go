// Package kafka publishes pipeline stage events to a Kafka topic. The
// notifier is feature-flagged; runs without brokers configured skip it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/citylake/traffic-weather-etl/internal/domain"
)

// Notifier produces stage events to a Kafka topic. It implements
// domain.StageNotifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a producer for the stage-event topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// NotifyStage serializes and publishes one stage event, keyed by run ID so
// a run's events land on one partition in order.
func (n *Notifier) NotifyStage(ctx context.Context, event domain.StageEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing stage event %s/%s: %w", event.RunID, event.Stage, err)
	}
	n.logger.Debug("stage event published", "run_id", event.RunID, "stage", event.Stage, "status", event.Status)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a StageEvent into a Kafka message.
func serializeToMessage(event domain.StageEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize stage event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "stage", Value: []byte(event.Stage)},
			{Key: "status", Value: []byte(event.Status)},
			{Key: "at", Value: []byte(event.At.Format(time.RFC3339))},
		},
	}, nil
}

var _ domain.StageNotifier = (*Notifier)(nil)
