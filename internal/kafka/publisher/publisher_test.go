package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/exposure-bridge/internal/kafka/producer"
	"github.com/example/exposure-bridge/internal/kafka/publisher"
	"github.com/example/exposure-bridge/internal/outcome"
)

type stubProducer struct {
	messages []producer.Message
	err      error
}

func (s *stubProducer) Publish(msg producer.Message) (producer.Delivery, error) {
	if s.err != nil {
		return producer.Delivery{}, s.err
	}
	s.messages = append(s.messages, msg)
	return producer.Delivery{Partition: 0, Offset: int64(len(s.messages) - 1)}, nil
}

func TestNewOutcomePublisherValidation(t *testing.T) {
	if _, err := publisher.NewOutcomePublisher(nil, "exposure.outcomes", zerolog.Nop()); !errors.Is(err, publisher.ErrProducerNotInitialised()) {
		t.Fatalf("expected producer not initialised error, got %v", err)
	}
	if _, err := publisher.NewOutcomePublisher(&stubProducer{}, "  ", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty topic")
	}
}

func TestRecordPublishesJSON(t *testing.T) {
	prod := &stubProducer{}
	pub, err := publisher.NewOutcomePublisher(prod, "exposure.outcomes", zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	event := outcome.Event{
		ID:          "evt-1",
		CallID:      "call-1",
		Operation:   "get_status",
		Outcome:     "unavailable",
		Disposition: "retry",
		StatusCode:  outcome.IntPtr(17),
		RefinedCode: outcome.IntPtr(3),
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := pub.Record(context.Background(), event); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}

	if len(prod.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(prod.messages))
	}
	msg := prod.messages[0]
	if msg.Topic != "exposure.outcomes" {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}
	if string(msg.Key) != "evt-1" {
		t.Fatalf("expected key evt-1, got %s", msg.Key)
	}
	if string(msg.Headers["content-type"]) != "application/json" {
		t.Fatalf("expected json content type, got %q", msg.Headers["content-type"])
	}
	if string(msg.Headers["outcome"]) != "unavailable" {
		t.Fatalf("expected outcome header, got %q", msg.Headers["outcome"])
	}

	var decoded outcome.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if decoded.RefinedCode == nil || *decoded.RefinedCode != 3 {
		t.Fatalf("expected refined code 3, got %+v", decoded.RefinedCode)
	}
}

func TestRecordWrapsProducerError(t *testing.T) {
	boom := errors.New("broker down")
	pub, err := publisher.NewOutcomePublisher(&stubProducer{err: boom}, "exposure.outcomes", zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	if err := pub.Record(context.Background(), outcome.Event{ID: "evt"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped producer error, got %v", err)
	}
}
