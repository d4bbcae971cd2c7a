// Package persist доставляет локальные мутации в Store Gateway в порядке их применения.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 100 * time.Millisecond
)

// ErrDispatcherStopped возвращается Flush, если очередь остановлена.
var ErrDispatcherStopped = errors.New("persist dispatcher stopped")

// Recorder принимает метрики очереди записи.
type Recorder interface {
	RecordPersist(op string, duration time.Duration, err error)
	RecordPersistGaveUp()
	SetQueueDepth(depth int)
	SetPendingMutations(count int)
}

// Job — вызов Store Gateway, подтверждающий локальную мутацию.
type Job struct {
	Entity domain.Entity
	// ID — идентификатор сущности, под которым отслеживается состояние мутации.
	ID string
	Op string
	// Run выполняется в goroutine диспетчера; может вызываться повторно.
	Run func(ctx context.Context) error
	// OnCommit вызывается после успешного Run.
	OnCommit func()
	// OnFail вызывается, когда попытки исчерпаны.
	OnFail func(err error)

	seq     uint64
	barrier chan struct{}
}

func (j Job) opName() string {
	return string(j.Entity) + "." + j.Op
}

// Options задаёт параметры диспетчера.
type Options struct {
	Logger         *log.Entry
	Recorder       Recorder
	MaxAttempts    int
	RetryBaseDelay time.Duration
	AttemptTimeout time.Duration
}

// Option настраивает Dispatcher.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithRecorder задаёт получателя метрик.
func WithRecorder(recorder Recorder) Option {
	return func(opts *Options) {
		opts.Recorder = recorder
	}
}

// WithMaxAttempts задаёт число попыток до перевода мутации в failed.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *Options) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.RetryBaseDelay = delay
	}
}

// WithAttemptTimeout ограничивает длительность одной попытки. 0 — без ограничения.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.AttemptTimeout = timeout
	}
}

// Dispatcher выполняет задания по одному в порядке постановки (FIFO).
// Enqueue не блокирует вызывающего; очередь не ограничена.
type Dispatcher struct {
	tracker        *Tracker
	logger         *log.Entry
	recorder       Recorder
	maxAttempts    int
	retryBaseDelay time.Duration
	attemptTimeout time.Duration

	mu      sync.Mutex
	queue   []Job
	failed  []Job
	seq     uint64
	stopped bool
	wake    chan struct{}
}

// NewDispatcher создаёт диспетчер. Задания выполняются только после запуска Run.
func NewDispatcher(tracker *Tracker, options ...Option) *Dispatcher {
	opts := Options{
		MaxAttempts:    defaultMaxAttempts,
		RetryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "persist-dispatcher")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}
	if opts.AttemptTimeout < 0 {
		opts.AttemptTimeout = 0
	}
	if tracker == nil {
		tracker = NewTracker()
	}

	return &Dispatcher{
		tracker:        tracker,
		logger:         logger,
		recorder:       opts.Recorder,
		maxAttempts:    opts.MaxAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		attemptTimeout: opts.AttemptTimeout,
		wake:           make(chan struct{}, 1),
	}
}

// Tracker возвращает tracker состояний мутаций.
func (d *Dispatcher) Tracker() *Tracker {
	return d.tracker
}

// Enqueue ставит задание в очередь и отмечает мутацию как pending.
func (d *Dispatcher) Enqueue(job Job) {
	if job.Run == nil {
		return
	}
	d.tracker.MarkPending(job.Entity, job.ID, job.Op)
	d.push(job)
	d.refreshMetrics()
}

// Flush ждёт, пока будут обработаны все задания, поставленные до вызова.
func (d *Dispatcher) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !d.push(Job{barrier: barrier}) {
		return ErrDispatcherStopped
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryFailed повторно ставит в очередь отклонённые задания в исходном порядке.
// Возвращает число поставленных заданий.
func (d *Dispatcher) RetryFailed() int {
	d.mu.Lock()
	jobs := d.failed
	d.failed = nil
	d.mu.Unlock()

	for _, job := range jobs {
		d.tracker.MarkPending(job.Entity, job.ID, job.Op)
		d.push(job)
	}
	if len(jobs) > 0 {
		d.logger.WithField("jobs", len(jobs)).Info("replaying failed mutations")
	}
	d.refreshMetrics()
	return len(jobs)
}

// FailedJobs возвращает число заданий, ожидающих повтора.
func (d *Dispatcher) FailedJobs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.failed)
}

// QueueDepth возвращает число заданий в очереди.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Run обрабатывает очередь до отмены ctx. Незавершённые задания остаются в очереди.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	d.stopped = false
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.stopped = true
		pending := d.queue
		d.queue = nil
		for _, job := range pending {
			if job.barrier != nil {
				close(job.barrier)
				continue
			}
			d.queue = append(d.queue, job)
		}
		d.mu.Unlock()
	}()

	for {
		job, ok := d.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			}
		}
		if ctx.Err() != nil {
			d.requeueFront(job)
			return
		}
		d.process(ctx, job)
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	if job.barrier != nil {
		close(job.barrier)
		return
	}

	err := d.runWithRetry(ctx, job)
	if err != nil && ctx.Err() != nil {
		// остановка сервиса, а не отказ хранилища: задание дождётся следующего Run или Flush
		d.tracker.MarkPending(job.Entity, job.ID, job.Op)
		d.requeueFront(job)
		d.refreshMetrics()
		return
	}
	if err == nil {
		d.tracker.MarkCommitted(job.Entity, job.ID, job.Op)
		d.dropSuperseded(job)
		if job.OnCommit != nil {
			job.OnCommit()
		}
		d.refreshMetrics()
		return
	}

	d.logger.WithError(err).WithFields(log.Fields{
		"entity":    job.Entity,
		"entity_id": job.ID,
		"op":        job.Op,
	}).Error("store mutation failed after retries")
	if d.recorder != nil {
		d.recorder.RecordPersistGaveUp()
	}
	d.tracker.MarkFailed(job.Entity, job.ID, job.Op, err)

	d.mu.Lock()
	d.failed = append(d.failed, job)
	d.mu.Unlock()

	if job.OnFail != nil {
		job.OnFail(err)
	}
	d.refreshMetrics()
}

func (d *Dispatcher) runWithRetry(ctx context.Context, job Job) error {
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		d.tracker.MarkAttempt(job.Entity, job.ID)

		started := time.Now()
		err := d.attempt(ctx, job)
		if d.recorder != nil {
			d.recorder.RecordPersist(job.opName(), time.Since(started), err)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		// Валидация и отсутствие сущности повтором не исправить.
		if domain.IsValidation(err) || domain.IsNotFound(err) {
			break
		}
		if attempt >= d.maxAttempts {
			break
		}

		delay := d.retryBackoff(attempt)
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed: %w", job.opName(), lastErr)
}

func (d *Dispatcher) attempt(ctx context.Context, job Job) error {
	if d.attemptTimeout <= 0 {
		return job.Run(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()
	return job.Run(attemptCtx)
}

func (d *Dispatcher) retryBackoff(attempt int) time.Duration {
	if d.retryBaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return d.retryBaseDelay
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := d.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}

// dropSuperseded убирает из повтора старые отклонённые задания той же сущности и операции.
func (d *Dispatcher) dropSuperseded(done Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.failed) == 0 {
		return
	}
	kept := d.failed[:0]
	for _, job := range d.failed {
		if job.Entity == done.Entity && job.ID == done.ID && job.Op == done.Op && job.seq < done.seq {
			continue
		}
		kept = append(kept, job)
	}
	d.failed = kept
}

func (d *Dispatcher) push(job Job) bool {
	d.mu.Lock()
	if job.barrier != nil && d.stopped {
		d.mu.Unlock()
		return false
	}
	if job.seq == 0 {
		d.seq++
		job.seq = d.seq
	}
	d.queue = append(d.queue, job)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

func (d *Dispatcher) pop() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Job{}, false
	}
	job := d.queue[0]
	d.queue[0] = Job{}
	d.queue = d.queue[1:]
	return job, true
}

func (d *Dispatcher) requeueFront(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append([]Job{job}, d.queue...)
}

func (d *Dispatcher) refreshMetrics() {
	if d.recorder == nil {
		return
	}
	d.recorder.SetQueueDepth(d.QueueDepth())
	d.recorder.SetPendingMutations(d.tracker.PendingCount())
}
