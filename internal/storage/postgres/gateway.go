package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	mediaRefPrefix = "pg://"
)

// Gateway — PostgreSQL-реализация Store Gateway мастерской.
type Gateway struct {
	db        *sql.DB
	now       func() time.Time
	allocator domain.OrderNumberAllocator
}

// GatewayOption настраивает Gateway.
type GatewayOption func(*Gateway)

// WithClock задаёт источник времени для created_at/updated_at.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithNumberAllocator переносит выдачу номеров заказов во внешний аллокатор (например, Redis).
func WithNumberAllocator(allocator domain.OrderNumberAllocator) GatewayOption {
	return func(g *Gateway) {
		g.allocator = allocator
	}
}

// NewGateway создаёт gateway поверх открытого Store.
func NewGateway(store *Store, options ...GatewayOption) *Gateway {
	g := &Gateway{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Ping проверяет доступность базы.
func (g *Gateway) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return g.db.PingContext(pingCtx)
}

// NextOrderNumber выдаёт номер из sequence order_number_seq либо из внешнего аллокатора.
func (g *Gateway) NextOrderNumber(ctx context.Context) (int64, error) {
	if g.allocator != nil {
		return g.allocator.NextOrderNumber(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var number int64
	if err := g.db.QueryRowContext(ctx, `SELECT nextval('order_number_seq')`).Scan(&number); err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return number, nil
}

// SeedOrderNumber поднимает sequence не ниже floor; sequence никогда не сдвигается назад.
func (g *Gateway) SeedOrderNumber(ctx context.Context, floor int64) error {
	if floor <= 0 {
		return nil
	}
	if seeder, ok := g.allocator.(domain.OrderNumberSeeder); ok {
		return seeder.SeedOrderNumber(ctx, floor)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := g.db.ExecContext(ctx, `
		SELECT setval('order_number_seq', $1)
		WHERE $1 > (SELECT CASE WHEN is_called THEN last_value ELSE last_value - 1 END FROM order_number_seq)
	`, floor); err != nil {
		return fmt.Errorf("seed order number: %w", err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func rowsAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var (
	_ domain.Gateway              = (*Gateway)(nil)
	_ domain.OrderNumberAllocator = (*Gateway)(nil)
	_ domain.OrderNumberSeeder    = (*Gateway)(nil)
	_ domain.MediaStore           = (*Gateway)(nil)
	_ domain.Pinger               = (*Gateway)(nil)
)
