package domain

import (
	"context"
	"time"
)

// CustomerStore — часть Store Gateway для заказчиков.
type CustomerStore interface {
	ListCustomers(ctx context.Context) ([]Customer, error)
	CreateCustomer(ctx context.Context, customer Customer) (Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	// ReorderCustomers применяет пакет позиций целиком.
	ReorderCustomers(ctx context.Context, entries []RankEntry) error
}

// ColorStore — часть Store Gateway для цветов.
type ColorStore interface {
	ListColors(ctx context.Context) ([]Color, error)
	CreateColor(ctx context.Context, color Color) (Color, error)
	DeleteColor(ctx context.Context, id string) error
	ReorderColors(ctx context.Context, entries []RankEntry) error
}

// CombinationStore — часть Store Gateway для комбинаций.
type CombinationStore interface {
	ListCombinations(ctx context.Context) ([]Combination, error)
	// CreateCombination сохраняет комбинацию вместе с изображением и возвращает запись с итоговой ссылкой на медиа.
	// Существующая запись с тем же ключом заменяется.
	CreateCombination(ctx context.Context, combination Combination, media *MediaFile) (Combination, error)
	DeleteCombination(ctx context.Context, id string) error
}

// OrderStore — часть Store Gateway для заказов.
type OrderStore interface {
	ListOrders(ctx context.Context) ([]Order, error)
	// CreateOrder сохраняет заказ; номер, идентификатор и время, назначенные хранилищем, имеют приоритет.
	CreateOrder(ctx context.Context, order Order) (Order, error)
	SetOrderStatus(ctx context.Context, id string, status OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error
}

// Gateway объединяет все коллекции Store Gateway.
type Gateway interface {
	CustomerStore
	ColorStore
	CombinationStore
	OrderStore
}

// OrderNumberAllocator выдаёт номера заказов атомарно на стороне хранилища.
type OrderNumberAllocator interface {
	NextOrderNumber(ctx context.Context) (int64, error)
}

// OrderNumberSeeder позволяет поднять счётчик не ниже уже выданных номеров.
type OrderNumberSeeder interface {
	SeedOrderNumber(ctx context.Context, floor int64) error
}

// MediaStore хранит изображения комбинаций.
type MediaStore interface {
	PutMedia(ctx context.Context, file MediaFile) (string, error)
	GetMedia(ctx context.Context, ref string) (MediaFile, error)
	DeleteMedia(ctx context.Context, ref string) error
}

// Pinger проверяет доступность хранилища (для health checks).
type Pinger interface {
	Ping(ctx context.Context) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
	// DeleteProcessedBefore удаляет до limit обработанных (sent/failed) записей, обновлённых не позже before.
	DeleteProcessedBefore(before time.Time, limit int) (int, error)
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
