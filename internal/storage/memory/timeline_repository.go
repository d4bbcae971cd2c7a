package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// timelineRepositoryInMemory хранит историю статусов по заказам; события заказа всегда отсортированы по Occurred.
type timelineRepositoryInMemory struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory историю статусов. Используется драйверами memory и mongo.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{byOrder: make(map[string][]domain.TimelineEvent)}
}

// Append вставляет событие на место по времени. События с одинаковым Occurred сохраняют порядок добавления.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	if event.OrderID == "" {
		return fmt.Errorf("%w: timeline event without order id", domain.ErrOrderNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	history := r.byOrder[event.OrderID]
	at := sort.Search(len(history), func(i int) bool {
		return history[i].Occurred.After(event.Occurred)
	})
	history = append(history, domain.TimelineEvent{})
	copy(history[at+1:], history[at:])
	history[at] = event
	r.byOrder[event.OrderID] = history
	return nil
}

func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.TimelineEvent(nil), r.byOrder[orderID]...), nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
