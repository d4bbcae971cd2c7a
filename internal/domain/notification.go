package domain

import "time"

// NotificationLevel — уровень пользовательского уведомления.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
	NotificationWarning NotificationLevel = "warning"
	NotificationInfo    NotificationLevel = "info"
)

// Notification — несрочное уведомление для UI (аналог toast).
type Notification struct {
	ID       string
	Level    NotificationLevel
	Message  string
	Entity   Entity
	EntityID string
	At       time.Time
}

// Notifier принимает уведомления. Реализации не должны блокировать вызывающего.
type Notifier interface {
	Notify(n Notification)
}
