package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkshopMetrics — метрики мутаций мастерской и их подтверждения хранилищем.
type WorkshopMetrics struct {
	// Мутации по сущности и операции
	mutations *prometheus.CounterVec

	// Очередь записи в хранилище
	persistDuration *prometheus.HistogramVec
	persistAttempts *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	pendingWrites   prometheus.Gauge

	notifications *prometheus.CounterVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewWorkshopMetrics создаёт метрики в DefaultRegisterer.
func NewWorkshopMetrics() *WorkshopMetrics {
	return NewWorkshopMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWorkshopMetricsWithRegisterer создаёт метрики в указанном registerer.
func NewWorkshopMetricsWithRegisterer(registerer prometheus.Registerer) *WorkshopMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WorkshopMetrics{
		mutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stitchboard_mutations_total",
			Help: "Total number of local mutations grouped by entity, operation and result",
		}, []string{"entity", "op", "result"}),
		persistDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "stitchboard_persist_duration_seconds",
			Help:    "Duration of store gateway calls in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		persistAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stitchboard_persist_attempts_total",
			Help: "Total number of store gateway attempts grouped by result",
		}, []string{"result"}),
		queueDepth: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "stitchboard_persist_queue_depth",
			Help: "Number of persistence jobs waiting in the dispatcher queue",
		}),
		pendingWrites: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "stitchboard_pending_mutations",
			Help: "Number of local mutations not yet confirmed by the store",
		}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stitchboard_notifications_total",
			Help: "Total number of user notifications grouped by level",
		}, []string{"level"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stitchboard_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stitchboard_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

// RecordMutation учитывает мутацию сущности с результатом (applied, noop, rejected).
func (m *WorkshopMetrics) RecordMutation(entity, op, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(entity, op, result).Inc()
}

// RecordPersist записывает длительность и результат вызова хранилища.
func (m *WorkshopMetrics) RecordPersist(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.persistDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		m.persistAttempts.WithLabelValues("error").Inc()
		return
	}
	m.persistAttempts.WithLabelValues("ok").Inc()
}

// RecordPersistGaveUp учитывает задание, исчерпавшее попытки.
func (m *WorkshopMetrics) RecordPersistGaveUp() {
	if m == nil {
		return
	}
	m.persistAttempts.WithLabelValues("failed").Inc()
}

// SetQueueDepth выставляет текущую длину очереди записи.
func (m *WorkshopMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// SetPendingMutations выставляет число неподтверждённых мутаций.
func (m *WorkshopMetrics) SetPendingMutations(count int) {
	if m == nil {
		return
	}
	m.pendingWrites.Set(float64(count))
}

// RecordNotification учитывает уведомление.
func (m *WorkshopMetrics) RecordNotification(level string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(level).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *WorkshopMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *WorkshopMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}
