package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	origin   string
	now      func() time.Time
}

// PublisherOption настраивает OutboxTopicPublisher.
type PublisherOption func(*OutboxTopicPublisher)

// WithOrigin помечает события идентификатором экземпляра, чтобы он мог пропускать свои же события.
func WithOrigin(origin string) PublisherOption {
	return func(p *OutboxTopicPublisher) {
		p.origin = origin
	}
}

// WithPublisherClock задаёт источник времени для published_at.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *OutboxTopicPublisher) {
		p.now = now
	}
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string, options ...PublisherOption) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	publisher := &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(publisher)
	}
	return publisher
}

// Publish отправляет событие; ключ сообщения — идентификатор заказа, чтобы события одного заказа шли в одну партицию.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("%w: kafka outbox publisher is not initialized", domain.ErrOutboxPublish)
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	envelope := Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     EventType(event.EventType),
		Origin:        p.origin,
		Payload:       payload,
		PublishedAt:   p.now(),
	}

	var headers map[string]string
	if p.origin != "" {
		headers = map[string]string{HeaderOrigin: p.origin}
	}
	return p.producer.PublishEventWithHeaders(p.topic, key, envelope, headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
