package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	publishedAt := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var envelope Envelope
		if err := json.Unmarshal(val, &envelope); err != nil {
			return err
		}
		if envelope.Origin != "node-a" {
			return errors.New("origin is not propagated")
		}
		if !envelope.PublishedAt.Equal(publishedAt) {
			return errors.New("published_at does not use the injected clock")
		}
		if string(envelope.Payload) != `{"status":"completed"}` {
			return errors.New("payload is not passed through")
		}
		return nil
	})

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents,
		WithOrigin("node-a"),
		WithPublisherClock(func() time.Time { return publishedAt }),
	)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-123",
		EventType:     domain.EventOrderStatusChanged,
		Payload:       []byte(`{"status":"completed"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_DefaultTopicAndEmptyPayload(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicOrderEvents {
			return errors.New("default topic is not applied")
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "outbox-2" {
			return errors.New("message id should be used as key without aggregate id")
		}
		return nil
	})

	producer := &Producer{producer: mockProducer, logger: log.WithField("component", "kafka-outbox-publisher-test")}
	if err := NewOutboxPublisher(producer, "").Publish(domain.OutboxMessage{ID: "outbox-2", EventType: domain.EventOrderCreated}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_NotInitialized(t *testing.T) {
	t.Parallel()

	var publisher *OutboxTopicPublisher
	err := publisher.Publish(domain.OutboxMessage{ID: "outbox-1"})
	if !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
}
