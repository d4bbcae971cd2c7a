// Package lifecycle управляет созданием, сменой статуса и удалением заказов.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/catalog"
	"github.com/vladislavdragonenkov/stitchboard/internal/collection"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
)

const (
	opCreate    = "create"
	opSetStatus = "set_status"
	opDelete    = "delete"

	placeholderPrefix = "local-"
)

// Dispatcher ставит вызовы хранилища в очередь.
type Dispatcher interface {
	Enqueue(job persist.Job)
	Tracker() *persist.Tracker
}

// Recorder принимает метрики контроллера.
type Recorder interface {
	RecordMutation(entity, op, result string)
	RecordTimelineEvent()
	RecordOutboxEvent()
}

// Dependencies — зависимости контроллера. Orders, Combinations, Store и Dispatcher обязательны.
type Dependencies struct {
	Orders       *collection.Collection[domain.Order]
	Combinations *collection.Collection[domain.Combination]
	Store        domain.OrderStore
	Dispatcher   Dispatcher
	Notifier     domain.Notifier
	Timeline     domain.TimelineRepository
	Outbox       domain.OutboxRepository
	Recorder     Recorder
	Logger       *log.Entry
	Now          func() time.Time
	// ResolveRef переводит временные ссылки на заказчика и цвет в подтверждённые перед записью.
	ResolveRef func(entity domain.Entity, id string) string
}

// Controller применяет изменения заказов локально и подтверждает их через хранилище.
type Controller struct {
	orders       *collection.Collection[domain.Order]
	combinations *collection.Collection[domain.Combination]
	store        domain.OrderStore
	dispatcher   Dispatcher
	notifier     domain.Notifier
	timeline     domain.TimelineRepository
	outbox       domain.OutboxRepository
	recorder     Recorder
	logger       *log.Entry
	now          func() time.Time
	resolveRef   func(entity domain.Entity, id string) string

	mu sync.Mutex
	// aliases: временный идентификатор -> идентификатор, выданный хранилищем.
	aliases map[string]string
	// removed: временные идентификаторы заказов, удалённых до подтверждения.
	removed map[string]bool
}

// New создаёт контроллер.
func New(deps Dependencies) (*Controller, error) {
	if deps.Orders == nil || deps.Combinations == nil {
		return nil, errors.New("lifecycle: collections are required")
	}
	if deps.Store == nil || deps.Dispatcher == nil {
		return nil, errors.New("lifecycle: store and dispatcher are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "order-lifecycle")
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Controller{
		orders:       deps.Orders,
		combinations: deps.Combinations,
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		notifier:     deps.Notifier,
		timeline:     deps.Timeline,
		outbox:       deps.Outbox,
		recorder:     deps.Recorder,
		logger:       logger,
		now:          now,
		resolveRef:   deps.ResolveRef,
		aliases:      make(map[string]string),
		removed:      make(map[string]bool),
	}, nil
}

// Create проверяет черновик, добавляет заказ с временным идентификатором и номером max+1
// и ставит сохранение в очередь. Ссылка на изображение комбинации фиксируется здесь и больше не пересчитывается.
func (c *Controller) Create(draft domain.OrderDraft) (domain.Order, error) {
	if err := draft.Validate(); err != nil {
		c.record(opCreate, "rejected")
		return domain.Order{}, err
	}

	now := c.now()
	order := domain.Order{
		ID:            NewPlaceholderID(),
		ProductType:   draft.ProductType,
		CustomerID:    domain.CanonicalID(draft.CustomerID),
		CustomerName:  strings.TrimSpace(draft.CustomerName),
		ColorID:       domain.CanonicalID(draft.ColorID),
		ColorName:     strings.TrimSpace(draft.ColorName),
		Variant:       domain.KeyFor(draft.ProductType, draft.Variant),
		PrintPosition: draft.PrintPosition,
		Sizes:         draft.Sizes.Clone(),
		TotalUnits:    draft.Sizes.Total(),
		Note:          draft.Note,
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if combo, ok := catalog.Find(c.combinations.Snapshot(), order.ProductType, order.ColorID, order.Fields()); ok {
		order.CombinationImageRef = combo.ImageRef
	}

	c.orders.Update(func(current []domain.Order) ([]domain.Order, bool) {
		order.Number = NextNumber(current)
		next := make([]domain.Order, len(current), len(current)+1)
		copy(next, current)
		return append(next, order), true
	})
	c.record(opCreate, "applied")

	placeholder := order.Clone()
	var confirmed domain.Order
	c.dispatcher.Enqueue(persist.Job{
		Entity: domain.EntityOrder,
		ID:     placeholder.ID,
		Op:     opCreate,
		Run: func(ctx context.Context) error {
			if c.wasRemovedBeforeConfirm(placeholder.ID) {
				return nil
			}
			toSave := placeholder.Clone()
			if c.resolveRef != nil {
				toSave.CustomerID = c.resolveRef(domain.EntityCustomer, toSave.CustomerID)
				toSave.ColorID = c.resolveRef(domain.EntityColor, toSave.ColorID)
			}
			saved, err := c.store.CreateOrder(ctx, toSave)
			if err != nil {
				return err
			}
			confirmed = saved
			return nil
		},
		OnCommit: func() {
			if confirmed.ID == "" {
				return
			}
			c.confirm(placeholder, confirmed)
			confirmed = domain.Order{}
		},
		OnFail: func(err error) {
			c.fail(placeholder.ID, fmt.Sprintf("order #%d could not be saved", placeholder.Number), err)
		},
	})

	return order.Clone(), nil
}

// Transition меняет статус заказа. Неизвестный идентификатор — молчаливый no-op (false, nil).
// Переход вне таблицы жизненного цикла отклоняется до изменения состояния.
func (c *Controller) Transition(id string, target domain.OrderStatus) (domain.Order, bool, error) {
	if !target.Valid() {
		c.record(opSetStatus, "rejected")
		return domain.Order{}, false, domain.ErrInvalidStatus
	}

	var (
		updated  domain.Order
		previous domain.OrderStatus
		found    bool
		err      error
	)
	resolved := c.Resolve(id)
	c.orders.Update(func(current []domain.Order) ([]domain.Order, bool) {
		idx := indexOf(current, id, resolved)
		if idx < 0 {
			return nil, false
		}
		found = true
		previous = current[idx].Status
		if !domain.CanTransition(previous, target) {
			err = fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, previous, target)
			return nil, false
		}
		next := make([]domain.Order, len(current))
		copy(next, current)
		updated = next[idx].Clone()
		updated.Status = target
		updated.UpdatedAt = c.now()
		next[idx] = updated
		return next, true
	})
	if err != nil {
		c.record(opSetStatus, "rejected")
		return domain.Order{}, true, err
	}
	if !found {
		c.record(opSetStatus, "noop")
		return domain.Order{}, false, nil
	}
	c.record(opSetStatus, "applied")

	id = updated.ID
	number := updated.Number
	changedAt := updated.UpdatedAt
	c.dispatcher.Enqueue(persist.Job{
		Entity: domain.EntityOrder,
		ID:     id,
		Op:     opSetStatus,
		Run: func(ctx context.Context) error {
			return c.store.SetOrderStatus(ctx, c.Resolve(id), target)
		},
		OnCommit: func() {
			if previous == target {
				return
			}
			c.emit(c.Resolve(id), domain.EventOrderStatusChanged, changedAt, map[string]any{
				"status":          target,
				"previous_status": previous,
				"number":          number,
				"reason":          string(target),
			})
		},
		OnFail: func(err error) {
			c.fail(id, fmt.Sprintf("order #%d status could not be updated to %s", number, target), err)
		},
	})

	return updated.Clone(), true, nil
}

// Complete переводит заказ в completed.
func (c *Controller) Complete(id string) (domain.Order, bool, error) {
	return c.Transition(id, domain.OrderStatusCompleted)
}

// Cancel переводит заказ в cancelled.
func (c *Controller) Cancel(id string) (domain.Order, bool, error) {
	return c.Transition(id, domain.OrderStatusCancelled)
}

// Reactivate возвращает выполненный или отменённый заказ в pending.
func (c *Controller) Reactivate(id string) (domain.Order, bool, error) {
	return c.Transition(id, domain.OrderStatusPending)
}

// Delete удаляет заказ из коллекции сразу и ставит удаление в хранилище в очередь.
// Неизвестный идентификатор — no-op.
func (c *Controller) Delete(id string) bool {
	var removed domain.Order
	resolved := c.Resolve(id)
	changed := c.orders.Update(func(current []domain.Order) ([]domain.Order, bool) {
		idx := indexOf(current, id, resolved)
		if idx < 0 {
			return nil, false
		}
		removed = current[idx]
		next := make([]domain.Order, 0, len(current)-1)
		next = append(next, current[:idx]...)
		return append(next, current[idx+1:]...), true
	})
	if !changed {
		c.record(opDelete, "noop")
		return false
	}
	c.record(opDelete, "applied")

	id = removed.ID
	if IsPlaceholder(id) {
		c.mu.Lock()
		c.removed[id] = true
		c.mu.Unlock()
	}

	c.dispatcher.Enqueue(persist.Job{
		Entity: domain.EntityOrder,
		ID:     id,
		Op:     opDelete,
		Run: func(ctx context.Context) error {
			target := c.Resolve(id)
			if IsPlaceholder(target) {
				// хранилище ещё не знает этот заказ
				return nil
			}
			err := c.store.DeleteOrder(ctx, target)
			if errors.Is(err, domain.ErrOrderNotFound) {
				return nil
			}
			return err
		},
		OnCommit: func() {
			target := c.Resolve(id)
			if IsPlaceholder(target) {
				return
			}
			c.emit(target, domain.EventOrderDeleted, c.now(), map[string]any{
				"number": removed.Number,
				"status": removed.Status,
			})
		},
		OnFail: func(err error) {
			c.fail(id, fmt.Sprintf("order #%d could not be deleted", removed.Number), err)
		},
	})
	return true
}

// Resolve возвращает идентификатор, выданный хранилищем, для временного идентификатора.
func (c *Controller) Resolve(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target, ok := c.aliases[id]; ok {
		return target
	}
	return id
}

// NewPlaceholderID выдаёт временный идентификатор для записи, ещё не сохранённой в хранилище.
func NewPlaceholderID() string {
	return placeholderPrefix + uuid.NewString()
}

// IsPlaceholder сообщает, что идентификатор выдан локально и ещё не подтверждён.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// NextNumber возвращает max(номеров)+1; для пустой коллекции 1.
func NextNumber(orders []domain.Order) int64 {
	var maxNumber int64
	for _, o := range orders {
		if o.Number > maxNumber {
			maxNumber = o.Number
		}
	}
	return maxNumber + 1
}

// confirm заменяет временную запись подтверждённой. Если временная запись уже удалена,
// подтверждённая не возвращается в коллекцию.
func (c *Controller) confirm(placeholder, confirmed domain.Order) {
	c.mu.Lock()
	c.aliases[placeholder.ID] = confirmed.ID
	c.mu.Unlock()
	c.dispatcher.Tracker().Rekey(domain.EntityOrder, placeholder.ID, confirmed.ID)

	c.orders.Update(func(current []domain.Order) ([]domain.Order, bool) {
		idx := indexOf(current, placeholder.ID, placeholder.ID)
		if idx < 0 {
			return nil, false
		}
		local := current[idx]
		merged := confirmed.Clone()
		// локальный статус новее: переход уже стоит в очереди за созданием
		merged.Status = local.Status
		if merged.CombinationImageRef == "" {
			merged.CombinationImageRef = local.CombinationImageRef
		}
		if local.UpdatedAt.After(merged.UpdatedAt) {
			merged.UpdatedAt = local.UpdatedAt
		}
		next := make([]domain.Order, len(current))
		copy(next, current)
		next[idx] = merged
		return next, true
	})

	c.emit(confirmed.ID, domain.EventOrderCreated, confirmed.CreatedAt, map[string]any{
		"number":      confirmed.Number,
		"customer_id": confirmed.CustomerID,
		"product":     confirmed.ProductType,
		"total_units": confirmed.TotalUnits,
		"status":      confirmed.Status,
	})
	c.notify(domain.NotificationSuccess, confirmed.ID, fmt.Sprintf("order #%d saved", confirmed.Number))
}

func (c *Controller) wasRemovedBeforeConfirm(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, confirmed := c.aliases[id]
	return c.removed[id] && !confirmed
}

func (c *Controller) fail(id, message string, err error) {
	c.logger.WithError(err).WithField("order_id", id).Warn(message)
	c.notify(domain.NotificationError, id, message+": "+err.Error())
}

func (c *Controller) notify(level domain.NotificationLevel, id, message string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(domain.Notification{
		Level:    level,
		Message:  message,
		Entity:   domain.EntityOrder,
		EntityID: id,
	})
}

func (c *Controller) record(op, result string) {
	if c.recorder != nil {
		c.recorder.RecordMutation(string(domain.EntityOrder), op, result)
	}
}

// indexOf ищет заказ по идентификатору или его подтверждённому псевдониму.
func indexOf(orders []domain.Order, id, resolved string) int {
	for i, o := range orders {
		if o.ID == id || o.ID == resolved {
			return i
		}
	}
	return -1
}
