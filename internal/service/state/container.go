// Package state владеет коллекциями мастерской и предоставляет операции над ними.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/catalog"
	"github.com/vladislavdragonenkov/stitchboard/internal/collection"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/ranking"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/report"
)

// Recorder принимает метрики контейнера и контроллера заказов.
type Recorder interface {
	lifecycle.Recorder
}

// Dependencies — зависимости контейнера. Gateway и Dispatcher обязательны.
type Dependencies struct {
	Gateway    domain.Gateway
	Dispatcher *persist.Dispatcher
	Notifier   domain.Notifier
	Timeline   domain.TimelineRepository
	Outbox     domain.OutboxRepository
	Recorder   Recorder
	Logger     *log.Entry
	Now        func() time.Time
}

// Container хранит четыре коллекции и выполняет над ними операции.
// Мутации выполняются синхронно под мьютексом; запись в хранилище идёт асинхронно через Dispatcher.
type Container struct {
	mu sync.Mutex

	gateway    domain.Gateway
	dispatcher *persist.Dispatcher
	notifier   domain.Notifier
	recorder   Recorder
	logger     *log.Entry
	now        func() time.Time

	customers    *collection.Collection[domain.Customer]
	colors       *collection.Collection[domain.Color]
	combinations *collection.Collection[domain.Combination]
	orders       *collection.Collection[domain.Order]

	lifecycle *lifecycle.Controller
	aliases   *aliases

	customerSet *rankedSet[domain.Customer]
	colorSet    *rankedSet[domain.Color]

	loaded bool
}

// New создаёт контейнер с пустыми коллекциями.
func New(deps Dependencies) (*Container, error) {
	if deps.Gateway == nil {
		return nil, errors.New("state: gateway is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("state: dispatcher is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "state-container")
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	c := &Container{
		gateway:      deps.Gateway,
		dispatcher:   deps.Dispatcher,
		notifier:     deps.Notifier,
		recorder:     deps.Recorder,
		logger:       logger,
		now:          now,
		customers:    collection.New[domain.Customer](nil),
		colors:       collection.New[domain.Color](nil),
		combinations: collection.New[domain.Combination](nil),
		orders:       collection.New[domain.Order](nil),
		aliases:      newAliases(),
	}

	ctrl, err := lifecycle.New(lifecycle.Dependencies{
		Orders:       c.orders,
		Combinations: c.combinations,
		Store:        deps.Gateway,
		Dispatcher:   deps.Dispatcher,
		Notifier:     deps.Notifier,
		Timeline:     deps.Timeline,
		Outbox:       deps.Outbox,
		Recorder:     recorderOrNil(deps.Recorder),
		Logger:       logger.WithField("component", "order-lifecycle"),
		Now:          now,
		ResolveRef:   c.aliases.resolve,
	})
	if err != nil {
		return nil, err
	}
	c.lifecycle = ctrl

	c.customerSet = &rankedSet[domain.Customer]{
		owner:   c,
		entity:  domain.EntityCustomer,
		items:   c.customers,
		create:  deps.Gateway.CreateCustomer,
		remove:  deps.Gateway.DeleteCustomer,
		reorder: deps.Gateway.ReorderCustomers,
		withID: func(item domain.Customer, id string) domain.Customer {
			item.ID = id
			return item
		},
		label: func(item domain.Customer) string { return item.Name },
	}
	c.colorSet = &rankedSet[domain.Color]{
		owner:   c,
		entity:  domain.EntityColor,
		items:   c.colors,
		create:  deps.Gateway.CreateColor,
		remove:  deps.Gateway.DeleteColor,
		reorder: deps.Gateway.ReorderColors,
		withID: func(item domain.Color, id string) domain.Color {
			item.ID = id
			return item
		},
		label: func(item domain.Color) string { return item.Name },
	}
	return c, nil
}

// Load загружает все четыре коллекции из хранилища. Внешние ссылки приводятся к каноническим
// идентификаторам, списки с ручным порядком сортируются, счётчик номеров заказов выравнивается.
func (c *Container) Load(ctx context.Context) error {
	customers, err := c.gateway.ListCustomers(ctx)
	if err != nil {
		return fmt.Errorf("load customers: %w", err)
	}
	colors, err := c.gateway.ListColors(ctx)
	if err != nil {
		return fmt.Errorf("load colors: %w", err)
	}
	combinations, err := c.gateway.ListCombinations(ctx)
	if err != nil {
		return fmt.Errorf("load combinations: %w", err)
	}
	orders, err := c.gateway.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}

	ranking.Sort(customers)
	ranking.Sort(colors)
	for i := range combinations {
		combinations[i] = catalog.Normalize(combinations[i])
	}
	for i := range orders {
		orders[i].CustomerID = domain.CanonicalID(orders[i].CustomerID)
		orders[i].ColorID = domain.CanonicalID(orders[i].ColorID)
		orders[i].Variant = domain.KeyFor(orders[i].ProductType, orders[i].Fields())
	}

	c.mu.Lock()
	c.customers.Set(customers)
	c.colors.Set(colors)
	c.combinations.Set(combinations)
	c.orders.Set(orders)
	c.loaded = true
	c.mu.Unlock()

	if seeder, ok := c.gateway.(domain.OrderNumberSeeder); ok {
		if err := seeder.SeedOrderNumber(ctx, lifecycle.NextNumber(orders)-1); err != nil {
			c.logger.WithError(err).Warn("failed to seed order number counter")
		}
	}

	c.logger.WithFields(log.Fields{
		"customers":    len(customers),
		"colors":       len(colors),
		"combinations": len(combinations),
		"orders":       len(orders),
	}).Info("state loaded")
	return nil
}

// Loaded сообщает, выполнена ли начальная загрузка.
func (c *Container) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Customers возвращает снимок заказчиков по возрастанию позиции.
func (c *Container) Customers() []domain.Customer {
	return c.customers.Snapshot()
}

// Colors возвращает снимок цветов по возрастанию позиции.
func (c *Container) Colors() []domain.Color {
	return c.colors.Snapshot()
}

// Combinations возвращает снимок комбинаций.
func (c *Container) Combinations() []domain.Combination {
	return c.combinations.Snapshot()
}

// Orders возвращает снимок заказов.
func (c *Container) Orders() []domain.Order {
	return c.orders.Snapshot()
}

// Order возвращает заказ по идентификатору (в том числе по временному).
func (c *Container) Order(id string) (domain.Order, bool) {
	resolved := c.lifecycle.Resolve(id)
	order, ok := c.orders.Find(func(o domain.Order) bool { return o.ID == id || o.ID == resolved })
	if !ok {
		return domain.Order{}, false
	}
	return order.Clone(), true
}

// OrderTimeline возвращает историю статусов заказа.
func (c *Container) OrderTimeline(id string) ([]domain.TimelineEvent, error) {
	return c.lifecycle.Timeline(id)
}

// AddCustomer добавляет заказчика в конец списка.
func (c *Container) AddCustomer(name string) (domain.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerSet.add(domain.Customer{Name: name})
}

// DeleteCustomer удаляет заказчика. Позиции остальных не пересчитываются.
func (c *Container) DeleteCustomer(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerSet.delete(id)
}

// MoveCustomer переносит заказчика на позицию rank.
func (c *Container) MoveCustomer(id string, rank int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.customerSet.move(id, rank)
}

// AddColor добавляет цвет в конец списка.
func (c *Container) AddColor(name, code string) (domain.Color, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.colorSet.add(domain.Color{Name: name, Code: code})
}

// DeleteColor удаляет цвет.
func (c *Container) DeleteColor(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.colorSet.delete(id)
}

// MoveColor переносит цвет на позицию rank.
func (c *Container) MoveColor(id string, rank int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.colorSet.move(id, rank)
}

// CreateOrder создаёт заказ.
func (c *Container) CreateOrder(draft domain.OrderDraft) (domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft.CustomerID = c.aliases.resolve(domain.EntityCustomer, domain.CanonicalID(draft.CustomerID))
	draft.ColorID = c.aliases.resolve(domain.EntityColor, domain.CanonicalID(draft.ColorID))
	if draft.CustomerName == "" {
		if customer, ok := c.customers.Find(func(item domain.Customer) bool { return item.ID == draft.CustomerID }); ok {
			draft.CustomerName = customer.Name
		}
	}
	if draft.ColorName == "" {
		if color, ok := c.colors.Find(func(item domain.Color) bool { return item.ID == draft.ColorID }); ok {
			draft.ColorName = color.Name
		}
	}
	return c.lifecycle.Create(draft)
}

// CompleteOrder переводит заказ в completed.
func (c *Container) CompleteOrder(id string) (domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle.Complete(id)
}

// CancelOrder переводит заказ в cancelled.
func (c *Container) CancelOrder(id string) (domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle.Cancel(id)
}

// ReactivateOrder возвращает заказ в pending.
func (c *Container) ReactivateOrder(id string) (domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle.Reactivate(id)
}

// SetOrderStatus применяет произвольный целевой статус.
func (c *Container) SetOrderStatus(id string, status domain.OrderStatus) (domain.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle.Transition(id, status)
}

// DeleteOrder удаляет заказ.
func (c *Container) DeleteOrder(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lifecycle.Delete(id)
}

// MutationState возвращает состояние последней мутации сущности.
func (c *Container) MutationState(entity domain.Entity, id string) (domain.MutationState, bool) {
	return c.dispatcher.Tracker().State(entity, id)
}

// FailedMutations возвращает мутации, отклонённые хранилищем.
func (c *Container) FailedMutations() []persist.TrackedMutation {
	return c.dispatcher.Tracker().Failed()
}

// PendingMutations возвращает мутации, ожидающие подтверждения.
func (c *Container) PendingMutations() []persist.TrackedMutation {
	return c.dispatcher.Tracker().Pending()
}

// RetryFailed повторяет отклонённые мутации и ждёт их обработки, пока ctx не отменён.
func (c *Container) RetryFailed(ctx context.Context) (int, error) {
	replayed := c.dispatcher.RetryFailed()
	if replayed == 0 {
		return 0, nil
	}
	if err := c.dispatcher.Flush(ctx); err != nil {
		return replayed, err
	}
	return replayed, nil
}

// Media возвращает изображение комбинации по ссылке, если хранилище хранит медиа.
func (c *Container) Media(ctx context.Context, ref string) (domain.MediaFile, error) {
	store, ok := c.gateway.(domain.MediaStore)
	if !ok {
		return domain.MediaFile{}, domain.ErrMediaNotFound
	}
	return store.GetMedia(ctx, ref)
}

// Report строит аналитику по текущему снимку заказов.
func (c *Container) Report(q report.Query) (report.Report, error) {
	if q.Now.IsZero() {
		q.Now = c.now()
	}
	return report.Build(c.orders.Snapshot(), q)
}

func (c *Container) notify(level domain.NotificationLevel, entity domain.Entity, id, message string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(domain.Notification{
		Level:    level,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	})
}

func (c *Container) record(entity domain.Entity, op, result string) {
	if c.recorder != nil {
		c.recorder.RecordMutation(string(entity), op, result)
	}
}

func recorderOrNil(r Recorder) lifecycle.Recorder {
	if r == nil {
		return nil
	}
	return r
}
