package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/stitchboard/internal/health"
	"github.com/vladislavdragonenkov/stitchboard/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/stitchboard/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/stitchboard/internal/service/grpc"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/notify"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/outbox"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/state"
	"github.com/vladislavdragonenkov/stitchboard/internal/version"
)

const (
	loadTimeout          = 30 * time.Second
	gracefulStopTimeout  = 5 * time.Second
	persistFlushTimeout  = 10 * time.Second
	httpShutdownTimeout  = 5 * time.Second
	defaultNotifications = 200
)

// Run поднимает хранилище, контейнер состояния, gRPC API и HTTP-сервер метрик и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if deps.closeFn == nil {
			return
		}
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	workshopMetrics := metrics.NewWorkshopMetrics()

	capacity := cfg.NotificationCapacity
	if capacity <= 0 {
		capacity = defaultNotifications
	}
	hub := notify.NewHub(capacity,
		notify.WithLogger(logger.WithField("component", "notifications")),
		notify.WithRecorder(workshopMetrics),
	)

	dispatcher := persist.NewDispatcher(persist.NewTracker(),
		persist.WithLogger(logger.WithField("component", "persist-dispatcher")),
		persist.WithRecorder(workshopMetrics),
		persist.WithMaxAttempts(cfg.PersistMaxAttempts),
		persist.WithRetryBaseDelay(cfg.PersistRetryDelay),
		persist.WithAttemptTimeout(cfg.PersistTimeout),
	)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(dispatcherCtx)
	}()
	defer func() {
		flushDispatcher(dispatcher, logger)
		stopDispatcher()
		<-dispatcherDone
	}()

	instanceID := strings.TrimSpace(cfg.InstanceID)
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	// Без Kafka события копятся только в долговечном outbox, чтобы их доставил следующий запуск.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	var outboxRepo domain.OutboxRepository
	if kafkaProducer != nil || deps.durableOutbox {
		outboxRepo = deps.outboxRepo
	}

	container, err := state.New(state.Dependencies{
		Gateway:    deps.gateway,
		Dispatcher: dispatcher,
		Notifier:   hub,
		Timeline:   deps.timelineRepo,
		Outbox:     outboxRepo,
		Recorder:   workshopMetrics,
		Logger:     logger.WithField("component", "state-container"),
	})
	if err != nil {
		return err
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, loadTimeout)
	if err := container.Load(loadCtx); err != nil {
		logger.WithError(err).Error("initial load failed, starting with empty collections")
		hub.Error("failed to load data: " + err.Error())
	}
	cancelLoad()

	outboxMetrics := metrics.NewOutboxMetrics()

	var (
		cancelOutbox  func()
		outboxDone    chan struct{}
		cancelCleanup func()
		cleanupDone   chan struct{}
	)
	if outboxRepo != nil {
		cancelCleanup, cleanupDone = startOutboxCleanup(cfg, outboxRepo, outboxMetrics, logger)
	}
	defer shutdownOutboxWorker(cancelCleanup, cleanupDone, logger)

	if kafkaProducer != nil {
		cancelOutbox, outboxDone = startOutboxWorker(cfg, deps.outboxRepo, kafkaProducer, instanceID, outboxMetrics, logger)

		relay, err := initRelayConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, instanceID, hub, logger)
		if err == nil && relay != nil {
			if err := relay.Start(ctx); err != nil {
				logger.WithError(err).Warn("failed to start kafka relay consumer")
			}
			defer stopRelay(relay, logger)
		}
	}
	defer shutdownOutboxWorker(cancelOutbox, outboxDone, logger)

	serviceLogger := logger.WithField("layer", "grpc")
	workshopService := grpcsvc.NewWorkshopService(container, hub, serviceLogger)

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	grpcsvc.RegisterWorkshopServer(grpcServer, workshopService)
	grpcMetrics.InitializeMetrics(grpcServer)

	// reflection нужен grpcurl: сервис описан через google.protobuf.Struct.
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	if deps.allocatorChecker != nil {
		healthHandler.RegisterChecker("order_numbers", deps.allocatorChecker)
	}
	healthHandler.RegisterChecker("persist", persistChecker(dispatcher))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("instance", instanceID).Infof("gRPC сервер слушает %s", cfg.GRPCAddr)
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		healthServer.Shutdown()
		stoppedCh := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(gracefulStopTimeout):
			logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			grpcServer.Stop()
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// persistChecker переводит сервис в degraded, пока есть отклонённые хранилищем мутации.
func persistChecker(dispatcher *persist.Dispatcher) healthcheck.Checker {
	return healthcheck.NewBacklogChecker("persist", dispatcher.FailedJobs,
		"%d mutations failed to persist, call RetryFailed")
}

// startOutboxWorker запускает доставку outbox-событий в Kafka.
func startOutboxWorker(cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, origin string, recorder *metrics.OutboxMetrics, logger *log.Entry) (func(), chan struct{}) {
	publisher := outbox.NewBreakerPublisher(
		kafka.NewOutboxPublisher(producer, cfg.KafkaTopic, kafka.WithOrigin(origin)),
		cfg.OutboxBreakerFailures,
		cfg.OutboxBreakerReset,
		logger.WithField("component", "outbox-breaker"),
	)
	dlqPublisher := kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue, kafka.WithOrigin(origin))
	worker := outbox.NewWorker(repo, publisher,
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(dlqPublisher),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		outbox.WithRecorder(recorder),
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// startOutboxCleanup запускает удаление обработанных outbox-событий старше OutboxRetention.
func startOutboxCleanup(cfg Config, repo domain.OutboxRepository, recorder *metrics.OutboxMetrics, logger *log.Entry) (func(), chan struct{}) {
	worker := outbox.NewCleanupWorker(repo,
		outbox.WithCleanupLogger(logger.WithField("component", "outbox-cleanup-worker")),
		outbox.WithCleanupInterval(cfg.OutboxCleanupInterval),
		outbox.WithRetention(cfg.OutboxRetention),
		outbox.WithCleanupRecorder(recorder),
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// shutdownOutboxWorker останавливает фоновый outbox-воркер и ждёт завершения текущего цикла.
func shutdownOutboxWorker(cancel func(), done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(gracefulStopTimeout):
		logger.Warn("outbox worker stop timed out")
	}
}

// flushDispatcher даёт очереди записи дописать подтверждённые мутации перед остановкой.
func flushDispatcher(dispatcher *persist.Dispatcher, logger *log.Entry) {
	if dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistFlushTimeout)
	defer cancel()
	if err := dispatcher.Flush(ctx); err != nil {
		logger.WithError(err).WithField("queued", dispatcher.QueueDepth()).Warn("persist queue was not drained before shutdown")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health endpoints.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
