package app

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/stitchboard/internal/health"
	"github.com/vladislavdragonenkov/stitchboard/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/stitchboard/internal/metrics"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
	"github.com/vladislavdragonenkov/stitchboard/internal/storage/memory"
)

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := postgresTestDSNCandidate()
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	if deps.closeFn != nil {
		defer func() { _ = deps.closeFn() }()
	}

	require.NotNil(t, deps.gateway)
	require.NotNil(t, deps.outboxRepo)
	require.NotNil(t, deps.timelineRepo)
	assert.True(t, deps.durableOutbox)
	require.NotNil(t, deps.storageChecker)
	assert.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check().Status)
}

func TestShutdownHelpers(t *testing.T) {
	logger := log.WithField("test", "shutdown")

	cancelCalled := false
	done := make(chan struct{})
	close(done)
	shutdownOutboxWorker(func() { cancelCalled = true }, done, logger)
	if !cancelCalled {
		t.Fatal("expected outbox cancel func to be called")
	}

	shutdownOutboxWorker(nil, nil, logger)
	flushDispatcher(nil, logger)
	stopRelay(nil, logger)
	closeKafka(nil, logger)
}

func TestStartOutboxCleanup_StopsOnCancel(t *testing.T) {
	logger := log.WithField("test", "outbox-cleanup")
	cfg := DefaultConfig()
	cfg.OutboxCleanupInterval = 10 * time.Millisecond

	cancel, done := startOutboxCleanup(cfg, memory.NewOutboxRepository(), metrics.NewOutboxMetrics(), logger)
	time.Sleep(30 * time.Millisecond)
	shutdownOutboxWorker(cancel, done, logger)

	select {
	case <-done:
	default:
		t.Fatal("cleanup worker must stop after cancel")
	}
}

func TestFlushDispatcher_StoppedQueueDoesNotBlock(t *testing.T) {
	dispatcher := persist.NewDispatcher(persist.NewTracker())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	finished := make(chan struct{})
	go func() {
		flushDispatcher(dispatcher, log.WithField("test", "flush"))
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(persistFlushTimeout + time.Second):
		t.Fatal("flushDispatcher must return for a stopped queue")
	}
}

func TestPersistChecker_DegradedOnFailedJobs(t *testing.T) {
	dispatcher := persist.NewDispatcher(persist.NewTracker(), persist.WithMaxAttempts(1), persist.WithRetryBaseDelay(0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	checker := persistChecker(dispatcher)
	assert.Equal(t, healthcheck.StatusHealthy, checker.Check().Status)

	dispatcher.Enqueue(persist.Job{
		Entity: domain.EntityCustomer,
		ID:     "c-1",
		Op:     "create",
		Run: func(context.Context) error {
			return errors.New("store is down")
		},
	})
	require.NoError(t, dispatcher.Flush(context.Background()))

	check := checker.Check()
	assert.Equal(t, healthcheck.StatusDegraded, check.Status)
	assert.Contains(t, check.Message, "RetryFailed")
}

func TestCloseKafkaProducer_NonNil(t *testing.T) {
	producer, err := kafka.NewProducer([]string{"localhost:9092"})
	if err != nil {
		t.Skipf("kafka is not available for integration test: %v", err)
	}
	closeKafka(producer, log.WithField("test", "kafka-close"))
}

func postgresTestDSNCandidate() string {
	return strings.TrimSpace(os.Getenv("STITCHBOARD_POSTGRES_TEST_DSN"))
}
