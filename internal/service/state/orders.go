package state

import (
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// SortOrder — порядок выдачи списка заказов.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// OrderFilter — параметры выборки заказов. Пустой статус означает все статусы.
type OrderFilter struct {
	Status domain.OrderStatus
	// Search — подстрока имени заказчика без учёта регистра.
	Search string
	Sort   SortOrder
}

// ListOrders возвращает заказы, отфильтрованные и отсортированные по дате создания.
func (c *Container) ListOrders(filter OrderFilter) []domain.Order {
	snapshot := c.orders.Snapshot()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]domain.Order, 0, len(snapshot))
	for _, o := range snapshot {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(o.CustomerName), search) {
			continue
		}
		out = append(out, o.Clone())
	}

	oldestFirst := filter.Sort == SortOldest
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if oldestFirst {
			return a.Number < b.Number
		}
		return a.Number > b.Number
	})
	return out
}

// StatusCounts возвращает количество заказов по статусам.
func (c *Container) StatusCounts() map[domain.OrderStatus]int {
	counts := map[domain.OrderStatus]int{
		domain.OrderStatusPending:   0,
		domain.OrderStatusCompleted: 0,
		domain.OrderStatusCancelled: 0,
	}
	for _, o := range c.orders.Snapshot() {
		counts[o.Status]++
	}
	return counts
}
