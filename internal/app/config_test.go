package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.PostgresAutoMigrate)
	assert.Equal(t, "stitchboard", cfg.MongoDatabase)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NotEmpty(t, cfg.KafkaTopic)

	assert.Positive(t, cfg.OutboxPollInterval)
	assert.Positive(t, cfg.OutboxBatchSize)
	assert.Positive(t, cfg.OutboxMaxAttempts)
	assert.GreaterOrEqual(t, cfg.OutboxRetryDelay, time.Duration(0))
	assert.Equal(t, 24*time.Hour, cfg.OutboxRetention)
	assert.Equal(t, 10*time.Minute, cfg.OutboxCleanupInterval)
	assert.Equal(t, 5, cfg.OutboxBreakerFailures)
	assert.Positive(t, cfg.OutboxBreakerReset)

	assert.Positive(t, cfg.PersistMaxAttempts)
	assert.GreaterOrEqual(t, cfg.PersistRetryDelay, time.Duration(0))
	assert.Positive(t, cfg.PersistTimeout)
	assert.Positive(t, cfg.NotificationCapacity)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
}

func TestConfig_Comparison(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	assert.Equal(t, a, b)

	b.StorageDriver = StorageDriverMongo
	assert.NotEqual(t, a, b)
}

func TestConfig_ZeroValue(t *testing.T) {
	var cfg Config
	assert.Empty(t, cfg.GRPCAddr)
	assert.Empty(t, cfg.StorageDriver)
	assert.False(t, cfg.PostgresAutoMigrate)
}
