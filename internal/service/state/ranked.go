package state

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/stitchboard/internal/collection"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/ranking"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
)

const (
	opCreate  = "create"
	opDelete  = "delete"
	opReorder = "reorder"
)

// aliases хранит соответствие временных идентификаторов подтверждённым по типам сущностей.
type aliases struct {
	mu      sync.Mutex
	targets map[domain.Entity]map[string]string
	removed map[domain.Entity]map[string]bool
}

func newAliases() *aliases {
	return &aliases{
		targets: make(map[domain.Entity]map[string]string),
		removed: make(map[domain.Entity]map[string]bool),
	}
}

func (a *aliases) set(entity domain.Entity, from, to string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.targets[entity] == nil {
		a.targets[entity] = make(map[string]string)
	}
	a.targets[entity][from] = to
}

func (a *aliases) resolve(entity domain.Entity, id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if to, ok := a.targets[entity][id]; ok {
		return to
	}
	return id
}

func (a *aliases) markRemoved(entity domain.Entity, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.removed[entity] == nil {
		a.removed[entity] = make(map[string]bool)
	}
	a.removed[entity][id] = true
}

// removedBeforeConfirm сообщает, что временная запись удалена до подтверждения хранилищем.
func (a *aliases) removedBeforeConfirm(entity domain.Entity, id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, confirmed := a.targets[entity][id]
	return a.removed[entity][id] && !confirmed
}

// rankedSet реализует добавление, удаление и перестановку для списков с ручным порядком.
type rankedSet[T ranking.Ranked[T]] struct {
	owner   *Container
	entity  domain.Entity
	items   *collection.Collection[T]
	create  func(ctx context.Context, item T) (T, error)
	remove  func(ctx context.Context, id string) error
	reorder func(ctx context.Context, entries []domain.RankEntry) error
	withID  func(item T, id string) T
	label   func(item T) string
}

func (s *rankedSet[T]) add(item T) (T, error) {
	var zero T
	name := strings.TrimSpace(s.label(item))
	if name == "" {
		s.owner.record(s.entity, opCreate, "rejected")
		return zero, domain.ErrNameRequired
	}

	item = s.withID(item, lifecycle.NewPlaceholderID())
	s.items.Update(func(current []T) ([]T, bool) {
		item = item.WithRank(ranking.NextRank(current))
		next := make([]T, len(current), len(current)+1)
		copy(next, current)
		return append(next, item), true
	})
	s.owner.record(s.entity, opCreate, "applied")

	placeholder := item
	var confirmed T
	var saved bool
	s.owner.dispatcher.Enqueue(persist.Job{
		Entity: s.entity,
		ID:     placeholder.RankID(),
		Op:     opCreate,
		Run: func(ctx context.Context) error {
			if s.owner.aliases.removedBeforeConfirm(s.entity, placeholder.RankID()) {
				return nil
			}
			// позиция могла измениться после добавления (move, повтор после ошибки)
			toSave := placeholder
			if current, ok := s.items.Find(func(item T) bool { return item.RankID() == placeholder.RankID() }); ok {
				toSave = toSave.WithRank(current.RankValue())
			}
			out, err := s.create(ctx, s.withID(toSave, ""))
			if err != nil {
				return err
			}
			confirmed, saved = out, true
			return nil
		},
		OnCommit: func() {
			if !saved {
				return
			}
			saved = false
			s.confirm(placeholder.RankID(), confirmed)
		},
		OnFail: func(err error) {
			s.owner.failMutation(s.entity, placeholder.RankID(), fmt.Sprintf("%s %q could not be saved", s.entity, name), err)
		},
	})
	return item, nil
}

// confirm заменяет временную запись подтверждённой, сохраняя локальную позицию.
func (s *rankedSet[T]) confirm(placeholderID string, confirmed T) {
	confirmedID := confirmed.RankID()
	s.owner.aliases.set(s.entity, placeholderID, confirmedID)
	s.owner.dispatcher.Tracker().Rekey(s.entity, placeholderID, confirmedID)

	s.items.Update(func(current []T) ([]T, bool) {
		idx := indexOfRanked(current, placeholderID)
		if idx < 0 {
			return nil, false
		}
		next := make([]T, len(current))
		copy(next, current)
		next[idx] = confirmed.WithRank(current[idx].RankValue())
		return next, true
	})
	s.owner.notify(domain.NotificationSuccess, s.entity, confirmedID, fmt.Sprintf("%s %q saved", s.entity, s.label(confirmed)))
}

// delete удаляет запись. Позиции остальных записей не пересчитываются.
func (s *rankedSet[T]) delete(id string) bool {
	resolved := s.owner.aliases.resolve(s.entity, id)
	var removed T
	changed := s.items.Update(func(current []T) ([]T, bool) {
		idx := indexOfRanked(current, id)
		if idx < 0 {
			idx = indexOfRanked(current, resolved)
		}
		if idx < 0 {
			return nil, false
		}
		removed = current[idx]
		next := make([]T, 0, len(current)-1)
		next = append(next, current[:idx]...)
		return append(next, current[idx+1:]...), true
	})
	if !changed {
		s.owner.record(s.entity, opDelete, "noop")
		return false
	}
	s.owner.record(s.entity, opDelete, "applied")

	id = removed.RankID()
	if lifecycle.IsPlaceholder(id) {
		s.owner.aliases.markRemoved(s.entity, id)
	}
	name := s.label(removed)
	s.owner.dispatcher.Enqueue(persist.Job{
		Entity: s.entity,
		ID:     id,
		Op:     opDelete,
		Run: func(ctx context.Context) error {
			target := s.owner.aliases.resolve(s.entity, id)
			if lifecycle.IsPlaceholder(target) {
				return nil
			}
			err := s.remove(ctx, target)
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		},
		OnFail: func(err error) {
			s.owner.failMutation(s.entity, id, fmt.Sprintf("%s %q could not be deleted", s.entity, name), err)
		},
	})
	return true
}

// move переносит запись на позицию rank и сохраняет полный снимок позиций одним вызовом.
func (s *rankedSet[T]) move(id string, rank int) bool {
	resolved := s.owner.aliases.resolve(s.entity, id)
	var entries []domain.RankEntry
	var movedID string
	changed := s.items.Update(func(current []T) ([]T, bool) {
		target := id
		if indexOfRanked(current, target) < 0 {
			target = resolved
		}
		next, moved := ranking.MoveToRank(current, target, rank)
		if !moved {
			return nil, false
		}
		entries = ranking.Entries(next)
		movedID = target
		return next, true
	})
	if !changed {
		s.owner.record(s.entity, opReorder, "noop")
		return false
	}
	s.owner.record(s.entity, opReorder, "applied")

	s.owner.dispatcher.Enqueue(persist.Job{
		Entity: s.entity,
		ID:     movedID,
		Op:     opReorder,
		Run: func(ctx context.Context) error {
			resolvedEntries := make([]domain.RankEntry, 0, len(entries))
			for _, e := range entries {
				target := s.owner.aliases.resolve(s.entity, e.ID)
				if lifecycle.IsPlaceholder(target) {
					// запись ещё не сохранена: создание возьмёт её текущую позицию
					continue
				}
				resolvedEntries = append(resolvedEntries, domain.RankEntry{ID: target, Rank: e.Rank})
			}
			if len(resolvedEntries) == 0 {
				return nil
			}
			return s.reorder(ctx, resolvedEntries)
		},
		OnFail: func(err error) {
			s.owner.failMutation(s.entity, movedID, fmt.Sprintf("%s order could not be saved", s.entity), err)
		},
	})
	return true
}

func indexOfRanked[T ranking.Ranked[T]](items []T, id string) int {
	for i, item := range items {
		if item.RankID() == id {
			return i
		}
	}
	return -1
}
