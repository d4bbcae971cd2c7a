// Package collection хранит срезы сущностей в виде неизменяемых снимков.
package collection

import (
	"sync"
	"sync/atomic"
)

// Collection — copy-on-write срез: читатели получают снимок без блокировки,
// изменения сериализуются мьютексом и публикуют новый срез целиком.
// Снимки нельзя модифицировать на месте.
type Collection[T any] struct {
	mu      sync.Mutex
	current atomic.Pointer[[]T]
}

// New создаёт коллекцию с начальным содержимым.
func New[T any](items []T) *Collection[T] {
	c := &Collection[T]{}
	c.Set(items)
	return c
}

// Snapshot возвращает текущий снимок.
func (c *Collection[T]) Snapshot() []T {
	if p := c.current.Load(); p != nil {
		return *p
	}
	return nil
}

// Len возвращает размер текущего снимка.
func (c *Collection[T]) Len() int {
	return len(c.Snapshot())
}

// Set публикует новый снимок.
func (c *Collection[T]) Set(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(items)
}

// Update атомарно заменяет снимок результатом fn.
// fn должна вернуть новый срез и не модифицировать переданный.
// Если fn вернула changed=false, снимок не меняется.
func (c *Collection[T]) Update(fn func(current []T) (next []T, changed bool)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, changed := fn(c.Snapshot())
	if !changed {
		return false
	}
	c.store(next)
	return true
}

// Find возвращает первый элемент, удовлетворяющий условию.
func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	for _, item := range c.Snapshot() {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) store(items []T) {
	cp := make([]T, len(items))
	copy(cp, items)
	c.current.Store(&cp)
}
