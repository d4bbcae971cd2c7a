package app

import "time"

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит данные в PostgreSQL.
	StorageDriverPostgres = "postgres"
	// StorageDriverMongo хранит данные в MongoDB, изображения комбинаций — в GridFS.
	StorageDriverMongo = "mongo"
)

const (
	// LogFormatText — текстовый формат логов.
	LogFormatText = "text"
	// LogFormatJSON — JSON формат логов.
	LogFormatJSON = "json"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	MongoURI            string
	MongoDatabase       string
	// RedisURL включает выдачу номеров заказов через Redis INCR. Пустое значение — счётчик хранилища.
	RedisURL string

	// KafkaBrokers — список брокеров через запятую. Пустое значение отключает публикацию событий.
	KafkaBrokers string
	KafkaTopic   string
	// InstanceID помечает события этого экземпляра; пустое значение заменяется случайным uuid.
	InstanceID string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxRetention — сколько хранятся отправленные события до очистки.
	OutboxRetention       time.Duration
	OutboxCleanupInterval time.Duration
	// OutboxBreakerFailures ошибок публикации подряд размыкают цепь на OutboxBreakerReset.
	OutboxBreakerFailures int
	OutboxBreakerReset    time.Duration

	PersistMaxAttempts int
	PersistRetryDelay  time.Duration
	PersistTimeout     time.Duration

	NotificationCapacity int

	LogLevel  string
	LogFormat string
	// LogFile включает запись логов в файл с ротацией.
	LogFile string
}

// DefaultConfig возвращает настройки по умолчанию: память, без Kafka и Redis.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:              ":50051",
		MetricsAddr:           ":9090",
		StorageDriver:         StorageDriverMemory,
		PostgresAutoMigrate:   true,
		MongoDatabase:         "stitchboard",
		KafkaTopic:            "stitchboard.order.events",
		OutboxPollInterval:    time.Second,
		OutboxBatchSize:       100,
		OutboxMaxAttempts:     5,
		OutboxRetryDelay:      200 * time.Millisecond,
		OutboxRetention:       24 * time.Hour,
		OutboxCleanupInterval: 10 * time.Minute,
		OutboxBreakerFailures: 5,
		OutboxBreakerReset:    30 * time.Second,
		PersistMaxAttempts:    3,
		PersistRetryDelay:     200 * time.Millisecond,
		PersistTimeout:        10 * time.Second,
		NotificationCapacity:  200,
		LogLevel:              "info",
		LogFormat:             LogFormatText,
	}
}
