// Package redis выдаёт номера заказов счётчиком Redis, общим для нескольких инстансов сервиса.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const (
	defaultKey = "stitchboard:order_number"
	opTimeout  = 2 * time.Second
)

// seedScript поднимает счётчик до floor, не уменьшая его.
var seedScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if current < floor then
	redis.call("SET", KEYS[1], floor)
	return floor
end
return current
`)

// Allocator — аллокатор номеров на INCR.
type Allocator struct {
	client *redis.Client
	key    string
}

// Option настраивает Allocator.
type Option func(*Allocator)

// WithKey задаёт ключ счётчика.
func WithKey(key string) Option {
	return func(a *Allocator) {
		if key != "" {
			a.key = key
		}
	}
}

// Open разбирает redis:// URL и проверяет соединение.
func Open(ctx context.Context, url string, options ...Option) (*Allocator, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, options...), nil
}

// New создаёт аллокатор поверх готового клиента.
func New(client *redis.Client, options ...Option) *Allocator {
	a := &Allocator{client: client, key: defaultKey}
	for _, option := range options {
		option(a)
	}
	return a
}

// NextOrderNumber атомарно увеличивает счётчик.
func (a *Allocator) NextOrderNumber(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	number, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr order number: %w", err)
	}
	return number, nil
}

// SeedOrderNumber поднимает счётчик до floor Lua-скриптом, чтобы сравнение и запись были атомарны.
func (a *Allocator) SeedOrderNumber(ctx context.Context, floor int64) error {
	if floor <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := seedScript.Run(ctx, a.client, []string{a.key}, floor).Err(); err != nil {
		return fmt.Errorf("seed order number: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (a *Allocator) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return a.client.Ping(ctx).Err()
}

// Close закрывает клиента.
func (a *Allocator) Close() error {
	return a.client.Close()
}

var (
	_ domain.OrderNumberAllocator = (*Allocator)(nil)
	_ domain.OrderNumberSeeder    = (*Allocator)(nil)
	_ domain.Pinger               = (*Allocator)(nil)
)
