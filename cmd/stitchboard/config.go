package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/stitchboard/internal/app"
)

const (
	envGRPCAddr             = "STITCHBOARD_GRPC_ADDR"
	envMetricsAddr          = "STITCHBOARD_METRICS_ADDR"
	envStorageDriver        = "STITCHBOARD_STORAGE_DRIVER"
	envPostgresDSN          = "STITCHBOARD_POSTGRES_DSN"
	envPostgresAutoMigrate  = "STITCHBOARD_POSTGRES_AUTO_MIGRATE"
	envMongoURI             = "STITCHBOARD_MONGO_URI"
	envMongoDatabase        = "STITCHBOARD_MONGO_DB"
	envRedisURL             = "STITCHBOARD_REDIS_URL"
	envKafkaBrokers         = "STITCHBOARD_KAFKA_BROKERS"
	envKafkaTopic           = "STITCHBOARD_KAFKA_TOPIC"
	envInstanceID           = "STITCHBOARD_INSTANCE_ID"
	envOutboxPollInterval   = "STITCHBOARD_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize      = "STITCHBOARD_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts    = "STITCHBOARD_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay     = "STITCHBOARD_OUTBOX_RETRY_DELAY"
	envOutboxRetention      = "STITCHBOARD_OUTBOX_RETENTION"
	envOutboxCleanup        = "STITCHBOARD_OUTBOX_CLEANUP_INTERVAL"
	envOutboxBreakerLimit   = "STITCHBOARD_OUTBOX_BREAKER_FAILURES"
	envOutboxBreakerReset   = "STITCHBOARD_OUTBOX_BREAKER_RESET"
	envPersistMaxAttempts   = "STITCHBOARD_PERSIST_MAX_ATTEMPTS"
	envPersistRetryDelay    = "STITCHBOARD_PERSIST_RETRY_DELAY"
	envPersistTimeout       = "STITCHBOARD_PERSIST_TIMEOUT"
	envNotificationCapacity = "STITCHBOARD_NOTIFICATION_CAPACITY"
	envLogLevel             = "STITCHBOARD_LOG_LEVEL"
	envLogFormat            = "STITCHBOARD_LOG_FORMAT"
	envLogFile              = "STITCHBOARD_LOG_FILE"

	// envDotenvFile указывает .env файл; по умолчанию читается ./.env, если он есть.
	envDotenvFile = "STITCHBOARD_ENV_FILE"
)

type envLookup func(key string) (string, bool)

// loadDotenv дополняет окружение значениями из .env. Уже заданные переменные не перезаписываются.
func loadDotenv(lookup envLookup) error {
	path, ok := lookup(envDotenvFile)
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// readConfigFromEnv собирает конфигурацию из окружения. Некорректные значения заменяются
// значениями по умолчанию, а описание проблемы возвращается в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	readString := func(key string, target *string) {
		if v, ok := lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				*target = v
			}
		}
	}
	readBool := func(key string, target *bool) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		value, err := parseBool(raw)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = value
	}
	readInt := func(key string, target *int, valid func(int) bool, rule string) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		value, err := parseInt(raw, valid, rule)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = value
	}
	readDuration := func(key string, target *time.Duration, valid func(time.Duration) bool, rule string) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		value, err := parseDuration(raw, valid, rule)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*target = value
	}

	positive := func(v int) bool { return v > 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	readString(envGRPCAddr, &cfg.GRPCAddr)
	readString(envMetricsAddr, &cfg.MetricsAddr)

	if raw, ok := lookup(envStorageDriver); ok && strings.TrimSpace(raw) != "" {
		driver := strings.ToLower(strings.TrimSpace(raw))
		switch driver {
		case app.StorageDriverMemory, app.StorageDriverPostgres, app.StorageDriverMongo:
			cfg.StorageDriver = driver
		default:
			warn(envStorageDriver, raw, fmt.Errorf("must be one of %s|%s|%s",
				app.StorageDriverMemory, app.StorageDriverPostgres, app.StorageDriverMongo))
		}
	}
	readString(envPostgresDSN, &cfg.PostgresDSN)
	readBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	readString(envMongoURI, &cfg.MongoURI)
	readString(envMongoDatabase, &cfg.MongoDatabase)
	readString(envRedisURL, &cfg.RedisURL)

	readString(envKafkaBrokers, &cfg.KafkaBrokers)
	readString(envKafkaTopic, &cfg.KafkaTopic)
	readString(envInstanceID, &cfg.InstanceID)

	readDuration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	readInt(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	readInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	readDuration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")
	readDuration(envOutboxRetention, &cfg.OutboxRetention, nonNegativeDuration, "must be >= 0")
	readDuration(envOutboxCleanup, &cfg.OutboxCleanupInterval, positiveDuration, "must be > 0")
	readInt(envOutboxBreakerLimit, &cfg.OutboxBreakerFailures, positive, "must be > 0")
	readDuration(envOutboxBreakerReset, &cfg.OutboxBreakerReset, positiveDuration, "must be > 0")

	readInt(envPersistMaxAttempts, &cfg.PersistMaxAttempts, positive, "must be > 0")
	readDuration(envPersistRetryDelay, &cfg.PersistRetryDelay, nonNegativeDuration, "must be >= 0")
	readDuration(envPersistTimeout, &cfg.PersistTimeout, positiveDuration, "must be > 0")
	readInt(envNotificationCapacity, &cfg.NotificationCapacity, positive, "must be > 0")

	readString(envLogLevel, &cfg.LogLevel)
	if raw, ok := lookup(envLogFormat); ok && strings.TrimSpace(raw) != "" {
		format := strings.ToLower(strings.TrimSpace(raw))
		switch format {
		case app.LogFormatText, app.LogFormatJSON:
			cfg.LogFormat = format
		default:
			warn(envLogFormat, raw, fmt.Errorf("must be %s or %s", app.LogFormatText, app.LogFormatJSON))
		}
	}
	readString(envLogFile, &cfg.LogFile)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("%d: %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("%s: %s", value, rule)
	}
	return value, nil
}
