// Package health отдаёт состояние зависимостей сервиса для /healthz и /readyz.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Status — итог проверки компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded — компонент работает, но требует внимания. Готовность не снимает.
	StatusDegraded Status = "degraded"
)

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check() Check
}

// CheckerFunc позволяет использовать функцию как Checker.
type CheckerFunc func() Check

func (f CheckerFunc) Check() Check { return f() }

// Handler собирает зарегистрированные проверки.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
	now       func() time.Time
}

// NewHandler создаёт обработчик; version попадает в ответ /healthz.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// RegisterChecker добавляет проверку. Повторная регистрация с тем же именем заменяет прежнюю.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки. Общий статус — худший из статусов компонентов.
func (h *Handler) Evaluate() Response {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	checks := make(map[string]Check, len(checkers))
	overall := StatusHealthy
	for name, checker := range checkers {
		check := checker.Check()
		checks[name] = check
		overall = worse(overall, check.Status)
	}

	return Response{
		Status:        overall,
		Timestamp:     h.now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(h.now().Sub(h.startTime).Seconds()),
	}
}

// ServeHTTP отдаёт JSON со всеми проверками; 503 только при unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	response := h.Evaluate()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler отвечает "ready" или "not ready: <компоненты>".
// Деградировавшие компоненты перечисляются, но готовность не снимают.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	response := h.Evaluate()

	unhealthy := namesWithStatus(response.Checks, StatusUnhealthy)
	if len(unhealthy) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "not ready: %s", strings.Join(unhealthy, ","))
		return
	}

	w.WriteHeader(http.StatusOK)
	if degraded := namesWithStatus(response.Checks, StatusDegraded); len(degraded) > 0 {
		_, _ = fmt.Fprintf(w, "ready (degraded: %s)", strings.Join(degraded, ","))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler всегда отвечает 200: процесс жив, пока обслуживает HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NewSimpleChecker считает компонент unhealthy, если checkFn вернула ошибку.
func NewSimpleChecker(name string, checkFn func() error) Checker {
	return CheckerFunc(func() Check {
		start := time.Now()
		err := checkFn()
		check := Check{Name: name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	})
}

// NewPingChecker вызывает ping с ограничением по времени.
func NewPingChecker(name string, timeout time.Duration, ping func(ctx context.Context) error) Checker {
	return NewSimpleChecker(name, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ping(ctx)
	})
}

// NewBacklogChecker переводит компонент в degraded, пока count() > 0.
// format получает значение счётчика.
func NewBacklogChecker(name string, count func() int, format string) Checker {
	return CheckerFunc(func() Check {
		check := Check{Name: name, Status: StatusHealthy}
		if n := count(); n > 0 {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf(format, n)
		}
		return check
	})
}

func worse(a, b Status) Status {
	if a == StatusUnhealthy || b == StatusUnhealthy {
		return StatusUnhealthy
	}
	if a == StatusDegraded || b == StatusDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func namesWithStatus(checks map[string]Check, status Status) []string {
	var names []string
	for name, check := range checks {
		if check.Status == status {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
