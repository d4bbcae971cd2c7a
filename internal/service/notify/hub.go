package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const (
	defaultCapacity   = 100
	subscriberBacklog = 16
)

// Recorder учитывает уведомления в метриках.
type Recorder interface {
	RecordNotification(level string)
}

// Hub хранит последние уведомления в кольцевом буфере и раздаёт их подписчикам.
type Hub struct {
	mu       sync.RWMutex
	ring     []domain.Notification
	next     int
	full     bool
	subs     map[int]chan domain.Notification
	nextSub  int
	logger   *log.Entry
	recorder Recorder
	now      func() time.Time
}

var _ domain.Notifier = (*Hub)(nil)

// Option настраивает Hub.
type Option func(*Hub)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithRecorder задаёт получателя метрик.
func WithRecorder(recorder Recorder) Option {
	return func(h *Hub) {
		h.recorder = recorder
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub создаёт hub, хранящий не более capacity последних уведомлений.
func NewHub(capacity int, options ...Option) *Hub {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	h := &Hub{
		ring: make([]domain.Notification, capacity),
		subs: make(map[int]chan domain.Notification),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(h)
	}
	if h.logger == nil {
		h.logger = log.WithField("component", "notify-hub")
	}
	return h
}

// Notify сохраняет уведомление и рассылает его подписчикам. Медленные подписчики пропускают сообщения.
func (h *Hub) Notify(n domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.At.IsZero() {
		n.At = h.now()
	}
	if n.Level == "" {
		n.Level = domain.NotificationInfo
	}

	h.mu.Lock()
	h.ring[h.next] = n
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.WithField("subscriber", id).Debug("notification dropped for slow subscriber")
		}
	}
	h.mu.Unlock()

	if h.recorder != nil {
		h.recorder.RecordNotification(string(n.Level))
	}

	entry := h.logger.WithFields(log.Fields{
		"level_ui":  n.Level,
		"entity":    n.Entity,
		"entity_id": n.EntityID,
	})
	if n.Level == domain.NotificationError {
		entry.Warn(n.Message)
		return
	}
	entry.Debug(n.Message)
}

// Success публикует уведомление об успехе.
func (h *Hub) Success(message string) {
	h.Notify(domain.Notification{Level: domain.NotificationSuccess, Message: message})
}

// Error публикует уведомление об ошибке.
func (h *Hub) Error(message string) {
	h.Notify(domain.Notification{Level: domain.NotificationError, Message: message})
}

// Recent возвращает до limit последних уведомлений, от новых к старым. limit <= 0 — все.
func (h *Hub) Recent(limit int) []domain.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.next
	if h.full {
		size = len(h.ring)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]domain.Notification, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.next - 1 - i + len(h.ring)) % len(h.ring)
		out = append(out, h.ring[idx])
	}
	return out
}

// Subscribe возвращает канал новых уведомлений и функцию отписки.
func (h *Hub) Subscribe() (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, subscriberBacklog)

	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}
