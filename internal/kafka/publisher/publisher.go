package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/exposure-bridge/internal/kafka/producer"
	"github.com/example/exposure-bridge/internal/outcome"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the Kafka publishers.
type SyncProducer interface {
	Publish(msg producer.Message) (producer.Delivery, error)
}

// ErrProducerNotInitialised exposes the sentinel error for callers and tests.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// OutcomePublisher emits adapter outcome events to a Kafka topic.
type OutcomePublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

var _ outcome.Sink = (*OutcomePublisher)(nil)

// NewOutcomePublisher constructs an OutcomePublisher instance.
func NewOutcomePublisher(prod SyncProducer, topic string, logger zerolog.Logger) (*OutcomePublisher, error) {
	if prod == nil {
		return nil, errProducerNotInitialised
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka publisher: topic is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &OutcomePublisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}, nil
}

// Record writes the event to Kafka synchronously, keyed by the event id.
func (p *OutcomePublisher) Record(_ context.Context, event outcome.Event) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal outcome event: %w", err)
	}

	headers := map[string][]byte{
		"content-type": []byte("application/json"),
		"operation":    []byte(event.Operation),
		"outcome":      []byte(event.Outcome),
	}

	d, err := p.producer.Publish(producer.Message{
		Topic:   p.topic,
		Key:     []byte(event.ID),
		Headers: headers,
		Value:   payload,
	})
	if err != nil {
		return fmt.Errorf("kafka publisher: publish outcome event: %w", err)
	}
	p.logger.Debug().
		Str("topic", p.topic).
		Int32("partition", d.Partition).
		Int64("offset", d.Offset).
		Str("event_id", event.ID).
		Str("operation", event.Operation).
		Str("outcome", event.Outcome).
		Msg("outcome event published")
	return nil
}
