// Package ranking реализует ручной порядок отображения заказчиков и цветов.
package ranking

import (
	"sort"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// Ranked — элемент списка с ручной позицией.
type Ranked[T any] interface {
	RankID() string
	RankValue() int
	WithRank(rank int) T
}

// MoveToRank переносит элемент id на позицию newRank, сдвигая соседей.
// Если элемента нет или позиция не меняется, возвращается исходный срез и false.
// Входной срез не модифицируется. newRank не проверяется на попадание в диапазон.
func MoveToRank[T Ranked[T]](items []T, id string, newRank int) ([]T, bool) {
	idx := indexOf(items, id)
	if idx < 0 {
		return items, false
	}
	oldRank := items[idx].RankValue()
	if oldRank == newRank {
		return items, false
	}

	out := make([]T, len(items))
	for i, item := range items {
		if i == idx {
			out[i] = item.WithRank(newRank)
			continue
		}
		rank := item.RankValue()
		switch {
		case oldRank < newRank && rank > oldRank && rank <= newRank:
			out[i] = item.WithRank(rank - 1)
		case oldRank > newRank && rank >= newRank && rank < oldRank:
			out[i] = item.WithRank(rank + 1)
		default:
			out[i] = item
		}
	}
	Sort(out)
	return out, true
}

// NextRank возвращает позицию для нового элемента: max+1, для пустого списка 1.
func NextRank[T Ranked[T]](items []T) int {
	maxRank := 0
	for _, item := range items {
		if r := item.RankValue(); r > maxRank {
			maxRank = r
		}
	}
	return maxRank + 1
}

// Sort упорядочивает срез по возрастанию позиции на месте; равные позиции сохраняют порядок.
func Sort[T Ranked[T]](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RankValue() < items[j].RankValue()
	})
}

// Entries возвращает полный список {id, rank} для пакетного обновления в хранилище.
func Entries[T Ranked[T]](items []T) []domain.RankEntry {
	entries := make([]domain.RankEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, domain.RankEntry{ID: item.RankID(), Rank: item.RankValue()})
	}
	return entries
}

// Apply переносит позиции из entries на элементы с теми же id. Неизвестные id игнорируются.
func Apply[T Ranked[T]](items []T, entries []domain.RankEntry) []T {
	ranks := make(map[string]int, len(entries))
	for _, e := range entries {
		ranks[e.ID] = e.Rank
	}
	out := make([]T, len(items))
	for i, item := range items {
		if rank, ok := ranks[item.RankID()]; ok {
			out[i] = item.WithRank(rank)
			continue
		}
		out[i] = item
	}
	Sort(out)
	return out
}

func indexOf[T Ranked[T]](items []T, id string) int {
	for i, item := range items {
		if item.RankID() == id {
			return i
		}
	}
	return -1
}
