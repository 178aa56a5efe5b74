package outbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coopahorro/dap/pkg/events"
	pkgkafka "github.com/coopahorro/dap/pkg/kafka"
)

// DefaultTopic carries every deposit and attachment event.
const DefaultTopic = "dap.deposit.events"

// MessageProducer publishes raw messages to a topic.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// Compile-time interface check.
var _ events.EntryPublisher = (*KafkaPublisher)(nil)

// KafkaPublisher implements events.EntryPublisher using Kafka. Entries are
// keyed by aggregate id so a deposit's events keep their order.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher creates a new Kafka-based entry publisher.
func NewKafkaPublisher(producer MessageProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) PublishEntries(ctx context.Context, entries []events.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		p.logger.DebugContext(ctx, "publishing event",
			"topic", p.topic,
			"event_type", e.EventType,
			"aggregate_id", e.AggregateID,
			"payload_size", len(e.Payload),
		)
		messages = append(messages, pkgkafka.Message{
			Key:   []byte(e.AggregateID.String()),
			Value: e.Payload,
			Headers: map[string]string{
				"event_id":       e.ID.String(),
				"event_type":     e.EventType,
				"aggregate_type": e.AggregateType,
			},
		})
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}
	return nil
}
