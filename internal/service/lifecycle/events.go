package lifecycle

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// Timeline возвращает историю статусов заказа.
func (c *Controller) Timeline(id string) ([]domain.TimelineEvent, error) {
	if c.timeline == nil {
		return nil, nil
	}
	return c.timeline.List(c.Resolve(id))
}

// emit кладёт подтверждённое хранилищем событие в outbox и timeline.
func (c *Controller) emit(orderID, eventType string, occurred time.Time, payload map[string]any) {
	if occurred.IsZero() {
		occurred = c.now()
	}
	if c.outbox != nil {
		c.enqueueOutbox(orderID, eventType, occurred, payload)
	}
	if c.timeline == nil {
		return
	}

	timelineType := domain.TimelineOrderStatusChanged
	if eventType == domain.EventOrderCreated {
		timelineType = domain.TimelineOrderCreated
	}
	if eventType == domain.EventOrderDeleted {
		return
	}
	reason, _ := payload["reason"].(string)
	event := domain.TimelineEvent{
		OrderID:  orderID,
		Type:     timelineType,
		Reason:   reason,
		Occurred: occurred,
	}
	if err := c.timeline.Append(event); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Warn("append timeline event failed")
		return
	}
	if c.recorder != nil {
		c.recorder.RecordTimelineEvent()
	}
}

func (c *Controller) enqueueOutbox(orderID, eventType string, occurred time.Time, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["order_id"] = orderID
	body["ts"] = occurred.Format(time.RFC3339Nano)

	data, err := json.Marshal(body)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: string(domain.EntityOrder),
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := c.outbox.Enqueue(msg); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}
	if c.recorder != nil {
		c.recorder.RecordOutboxEvent()
	}
}
