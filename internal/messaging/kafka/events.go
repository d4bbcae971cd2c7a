package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderCreated       EventType = domain.EventOrderCreated
	EventTypeOrderStatusChanged EventType = domain.EventOrderStatusChanged
	EventTypeOrderDeleted       EventType = domain.EventOrderDeleted
)

// Topics для Kafka
const (
	TopicOrderEvents     = "stitchboard.order.events"
	TopicDeadLetterQueue = "stitchboard.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	// HeaderOrigin — идентификатор экземпляра сервиса, опубликовавшего событие.
	HeaderOrigin = "x-origin"
)

// Envelope — формат события заказа в topic.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	Origin        string          `json:"origin,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OrderPayload — поля payload, общие для событий заказа.
type OrderPayload struct {
	Number         int64  `json:"number"`
	Status         string `json:"status,omitempty"`
	PreviousStatus string `json:"previous_status,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	TotalUnits     int    `json:"total_units,omitempty"`
}

// ParseEnvelope разбирает событие заказа из сообщения.
func ParseEnvelope(message *sarama.ConsumerMessage) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	if envelope.EventType == "" {
		return nil, fmt.Errorf("order event without event_type at offset %d", message.Offset)
	}
	return &envelope, nil
}

// OrderPayload разбирает payload события заказа.
func (e *Envelope) OrderPayload() (OrderPayload, error) {
	var payload OrderPayload
	if len(e.Payload) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return OrderPayload{}, fmt.Errorf("failed to unmarshal order payload: %w", err)
	}
	return payload, nil
}
