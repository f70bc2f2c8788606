package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"triage/internal/core"
	"triage/internal/logging"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher sends pipeline events to a Kafka topic. It is a
// core.Observer; publish failures are logged and never affect triage.
type EventPublisher struct {
	writer messageWriter
	log    logging.Logger
}

// NewEventPublisher creates a publisher writing asynchronously to topic.
func NewEventPublisher(brokers []string, topic string, log logging.Logger) *EventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("Failed to deliver events to Kafka", "topic", topic, "count", len(messages), "error", err)
			}
		},
	}
	return newEventPublisher(writer, log)
}

func newEventPublisher(writer messageWriter, log logging.Logger) *EventPublisher {
	return &EventPublisher{writer: writer, log: log}
}

// Observe publishes e keyed by email id, so events of one email stay in one
// partition in emission order.
func (p *EventPublisher) Observe(ctx context.Context, e core.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("Failed to encode event", "event_id", e.ID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(e.EmailID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("Failed to publish event", "event_id", e.ID, "kind", string(e.Kind), "error", err)
		return
	}

	p.log.Debug("Published event", "event_id", e.ID, "kind", string(e.Kind))
}

// Close flushes pending messages and closes the writer.
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
