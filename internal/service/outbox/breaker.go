package outbox

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// ErrCircuitOpen возвращается, пока брокер считается недоступным. Событие остаётся pending.
var ErrCircuitOpen = errors.New("outbox: circuit breaker is open")

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerPublisher размыкает публикацию после maxFailures ошибок подряд
// и пропускает одну пробную попытку после resetTimeout.
type BreakerPublisher struct {
	next         domain.OutboxPublisher
	maxFailures  int
	resetTimeout time.Duration
	logger       *log.Entry
	now          func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
}

// NewBreakerPublisher оборачивает publisher circuit breaker'ом.
func NewBreakerPublisher(next domain.OutboxPublisher, maxFailures int, resetTimeout time.Duration, logger *log.Entry) *BreakerPublisher {
	if logger == nil {
		logger = log.WithField("component", "outbox-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &BreakerPublisher{
		next:         next,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		logger:       logger,
		now:          time.Now,
		state:        CircuitClosed,
	}
}

// State возвращает текущее состояние.
func (b *BreakerPublisher) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Publish передаёт событие дальше, если цепь не разомкнута.
func (b *BreakerPublisher) Publish(event domain.OutboxMessage) error {
	if err := b.before(); err != nil {
		return err
	}
	err := b.next.Publish(event)
	b.after(err)
	return err
}

func (b *BreakerPublisher) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitOpen {
		return nil
	}
	if b.now().Sub(b.lastFailure) <= b.resetTimeout {
		return ErrCircuitOpen
	}
	b.state = CircuitHalfOpen
	b.logger.Info("circuit breaker half-open")
	return nil
}

func (b *BreakerPublisher) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == CircuitHalfOpen || b.failures >= b.maxFailures {
			if b.state != CircuitOpen {
				b.logger.WithField("failures", b.failures).Warn("circuit breaker opened")
			}
			b.state = CircuitOpen
		}
		return
	}

	if b.state == CircuitHalfOpen {
		b.logger.Info("circuit breaker closed")
	}
	b.state = CircuitClosed
	b.failures = 0
}

var _ domain.OutboxPublisher = (*BreakerPublisher)(nil)
