package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// NewNotificationRelay возвращает обработчик, который превращает события заказов других экземпляров
// в информационные уведомления. События своего экземпляра (origin) пропускаются.
func NewNotificationRelay(notifier domain.Notifier, origin string) MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		envelope, err := ParseEnvelope(message)
		if err != nil {
			return err
		}
		if origin != "" && envelope.Origin == origin {
			return nil
		}
		payload, err := envelope.OrderPayload()
		if err != nil {
			return err
		}

		text, ok := describe(envelope.EventType, payload)
		if !ok {
			return nil
		}
		notifier.Notify(domain.Notification{
			Level:    domain.NotificationInfo,
			Message:  text,
			Entity:   domain.EntityOrder,
			EntityID: envelope.AggregateID,
		})
		return nil
	}
}

func describe(eventType EventType, payload OrderPayload) (string, bool) {
	switch eventType {
	case EventTypeOrderCreated:
		return fmt.Sprintf("order #%d was created in another session", payload.Number), true
	case EventTypeOrderStatusChanged:
		return fmt.Sprintf("order #%d is now %s (changed in another session)", payload.Number, payload.Status), true
	case EventTypeOrderDeleted:
		return fmt.Sprintf("order #%d was deleted in another session", payload.Number), true
	default:
		return "", false
	}
}
