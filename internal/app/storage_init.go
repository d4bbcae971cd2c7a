package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/stitchboard/internal/health"
	"github.com/vladislavdragonenkov/stitchboard/internal/storage/memory"
	mongostore "github.com/vladislavdragonenkov/stitchboard/internal/storage/mongo"
	"github.com/vladislavdragonenkov/stitchboard/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/stitchboard/internal/storage/redis"
)

const (
	storageInitTimeout  = 15 * time.Second
	healthCheckTimeout  = 2 * time.Second
	storageCloseTimeout = 5 * time.Second
)

// runtimeDependencies — хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	gateway      domain.Gateway
	outboxRepo   domain.OutboxRepository
	timelineRepo domain.TimelineRepository
	// durableOutbox — outbox переживает рестарт, поэтому события копятся и без Kafka.
	durableOutbox bool

	storageChecker   healthcheck.Checker
	allocatorChecker healthcheck.Checker
	closeFn          func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}
	switch driver {
	case StorageDriverMemory, StorageDriverPostgres, StorageDriverMongo:
	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
	defer cancel()

	var (
		deps      runtimeDependencies
		allocator *redisstore.Allocator
	)
	if url := strings.TrimSpace(cfg.RedisURL); url != "" {
		var err error
		allocator, err = redisstore.Open(initCtx, url)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("init redis order number allocator: %w", err)
		}
		deps.allocatorChecker = pingChecker("redis", allocator)
		logger.Info("номера заказов выдаёт redis")
	}

	var err error
	switch driver {
	case StorageDriverMemory:
		err = initMemoryStorage(&deps, allocator)
	case StorageDriverPostgres:
		err = initPostgresStorage(initCtx, &deps, cfg, allocator, logger)
	case StorageDriverMongo:
		err = initMongoStorage(initCtx, &deps, cfg, allocator)
	}
	if err != nil {
		if allocator != nil {
			_ = allocator.Close()
		}
		return runtimeDependencies{}, err
	}

	if allocator != nil {
		storageClose := deps.closeFn
		deps.closeFn = func() error {
			var errs []error
			if storageClose != nil {
				errs = append(errs, storageClose())
			}
			errs = append(errs, allocator.Close())
			return errors.Join(errs...)
		}
	}

	logger.WithField("driver", driver).Info("хранилище инициализировано")
	return deps, nil
}

func initMemoryStorage(deps *runtimeDependencies, allocator *redisstore.Allocator) error {
	var options []memory.Option
	if allocator != nil {
		options = append(options, memory.WithNumberAllocator(allocator))
	}
	gateway := memory.NewGateway(options...)

	deps.gateway = gateway
	deps.outboxRepo = memory.NewOutboxRepository()
	deps.timelineRepo = memory.NewTimelineRepository()
	deps.storageChecker = pingChecker("storage", gateway)
	return nil
}

func initPostgresStorage(ctx context.Context, deps *runtimeDependencies, cfg Config, allocator *redisstore.Allocator, logger *log.Entry) error {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return errors.New("postgres dsn is required for postgres storage driver")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("apply postgres migrations: %w", err)
		}
		logger.Info("миграции postgres применены")
	} else if err := store.SchemaReady(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("check postgres schema: %w", err)
	}

	var options []postgres.GatewayOption
	if allocator != nil {
		options = append(options, postgres.WithNumberAllocator(allocator))
	}

	deps.gateway = postgres.NewGateway(store, options...)
	deps.outboxRepo = postgres.NewOutboxRepository(store)
	deps.timelineRepo = postgres.NewTimelineRepository(store)
	deps.durableOutbox = true
	deps.storageChecker = pingChecker("storage", store)
	deps.closeFn = store.Close
	return nil
}

func initMongoStorage(ctx context.Context, deps *runtimeDependencies, cfg Config, allocator *redisstore.Allocator) error {
	uri := strings.TrimSpace(cfg.MongoURI)
	if uri == "" {
		return errors.New("mongo uri is required for mongo storage driver")
	}

	database := strings.TrimSpace(cfg.MongoDatabase)
	if database == "" {
		database = DefaultConfig().MongoDatabase
	}

	store, err := mongostore.Open(ctx, uri, database)
	if err != nil {
		return fmt.Errorf("open mongo store: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		closeMongo(store)
		return fmt.Errorf("ensure mongo indexes: %w", err)
	}

	var options []mongostore.GatewayOption
	if allocator != nil {
		options = append(options, mongostore.WithNumberAllocator(allocator))
	}

	deps.gateway = mongostore.NewGateway(store, options...)
	// Outbox и timeline для mongo живут в памяти процесса.
	deps.outboxRepo = memory.NewOutboxRepository()
	deps.timelineRepo = memory.NewTimelineRepository()
	deps.storageChecker = pingChecker("storage", store)
	deps.closeFn = func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), storageCloseTimeout)
		defer cancel()
		return store.Close(closeCtx)
	}
	return nil
}

func closeMongo(store *mongostore.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), storageCloseTimeout)
	defer cancel()
	_ = store.Close(ctx)
}

// pingChecker превращает Pinger в проверку для /healthz и /readyz.
func pingChecker(name string, pinger domain.Pinger) healthcheck.Checker {
	return healthcheck.NewPingChecker(name, healthCheckTimeout, pinger.Ping)
}
