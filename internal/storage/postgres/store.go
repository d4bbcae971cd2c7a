package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnTimeout = 5 * time.Second

	// Мастерская — один сервис с небольшим числом параллельных запросов.
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// ErrSchemaNotReady — в базе нет таблиц, созданных миграциями.
var ErrSchemaNotReady = errors.New("postgres schema is not migrated")

// requiredTables — таблицы, без которых шлюз не работает.
var requiredTables = []string{
	"customers",
	"colors",
	"combination_media",
	"combinations",
	"orders",
	"outbox_messages",
	"timeline_events",
}

// Store держит пул соединений database/sql поверх драйвера pgx.
type Store struct {
	db *sql.DB
}

// Open открывает пул и проверяет, что база отвечает.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}

// DB нужен репозиториям и тестам.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping реализует domain.Pinger для проверок здоровья.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции. Вызывается при старте, если включена автомиграция.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// SchemaReady проверяет, что миграции применены. Без автомиграции сервис не стартует на пустой базе.
func (s *Store) SchemaReady(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()

	var missing []string
	for _, table := range requiredTables {
		var found sql.NullString
		if err := s.db.QueryRowContext(queryCtx, `SELECT to_regclass($1)::text`, table).Scan(&found); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !found.Valid {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing tables %s", ErrSchemaNotReady, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
