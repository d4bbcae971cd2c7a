package domain

import "time"

const (
	// TimelineOrderCreated — заказ создан.
	TimelineOrderCreated = "OrderCreated"
	// TimelineOrderStatusChanged — статус заказа изменён.
	TimelineOrderStatusChanged = "OrderStatusChanged"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// Типы событий заказа для outbox.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)
