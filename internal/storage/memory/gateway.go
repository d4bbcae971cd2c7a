package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/stitchboard/internal/catalog"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// gatewayInMemory — in-memory реализация Store Gateway для локальной разработки и тестов.
// Идентификаторы и номера заказов назначаются хранилищем, как в реальных драйверах.
type gatewayInMemory struct {
	mu           sync.RWMutex
	customers    map[string]domain.Customer
	colors       map[string]domain.Color
	combinations map[string]domain.Combination
	orders       map[string]domain.Order
	media        map[string]domain.MediaFile
	lastNumber   int64
	allocator    domain.OrderNumberAllocator
	now          func() time.Time
}

// Gateway — in-memory Store Gateway вместе с медиа и счётчиком номеров.
type Gateway interface {
	domain.Gateway
	domain.OrderNumberAllocator
	domain.OrderNumberSeeder
	domain.MediaStore
	domain.Pinger
}

// Option настраивает in-memory gateway.
type Option func(*gatewayInMemory)

// WithNumberAllocator передаёт выдачу номеров внешнему счётчику (например, Redis).
func WithNumberAllocator(allocator domain.OrderNumberAllocator) Option {
	return func(g *gatewayInMemory) {
		g.allocator = allocator
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(g *gatewayInMemory) {
		g.now = now
	}
}

// NewGateway создаёт пустое in-memory хранилище.
func NewGateway(options ...Option) Gateway {
	g := &gatewayInMemory{
		customers:    make(map[string]domain.Customer),
		colors:       make(map[string]domain.Color),
		combinations: make(map[string]domain.Combination),
		orders:       make(map[string]domain.Order),
		media:        make(map[string]domain.MediaFile),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Ping всегда успешен.
func (g *gatewayInMemory) Ping(context.Context) error { return nil }

func (g *gatewayInMemory) ListCustomers(context.Context) ([]domain.Customer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]domain.Customer, 0, len(g.customers))
	for _, c := range g.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (g *gatewayInMemory) CreateCustomer(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	if customer.Name == "" {
		return domain.Customer{}, domain.ErrNameRequired
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	customer.ID = uuid.NewString()
	customer.CreatedAt = g.now()
	g.customers[customer.ID] = customer
	return customer, nil
}

func (g *gatewayInMemory) DeleteCustomer(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(g.customers, id)
	return nil
}

func (g *gatewayInMemory) ReorderCustomers(_ context.Context, entries []domain.RankEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range entries {
		if c, ok := g.customers[e.ID]; ok {
			c.Rank = e.Rank
			g.customers[e.ID] = c
		}
	}
	return nil
}

func (g *gatewayInMemory) ListColors(context.Context) ([]domain.Color, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]domain.Color, 0, len(g.colors))
	for _, c := range g.colors {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (g *gatewayInMemory) CreateColor(_ context.Context, color domain.Color) (domain.Color, error) {
	if color.Name == "" {
		return domain.Color{}, domain.ErrNameRequired
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	color.ID = uuid.NewString()
	color.CreatedAt = g.now()
	g.colors[color.ID] = color
	return color, nil
}

func (g *gatewayInMemory) DeleteColor(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.colors[id]; !ok {
		return domain.ErrColorNotFound
	}
	delete(g.colors, id)
	return nil
}

func (g *gatewayInMemory) ReorderColors(_ context.Context, entries []domain.RankEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range entries {
		if c, ok := g.colors[e.ID]; ok {
			c.Rank = e.Rank
			g.colors[e.ID] = c
		}
	}
	return nil
}

func (g *gatewayInMemory) ListCombinations(context.Context) ([]domain.Combination, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]domain.Combination, 0, len(g.combinations))
	for _, c := range g.combinations {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CreateCombination сохраняет изображение и комбинацию; запись с тем же ключом заменяется.
// Медиа заменённой записи остаётся: на него могут ссылаться уже созданные заказы.
func (g *gatewayInMemory) CreateCombination(ctx context.Context, combination domain.Combination, media *domain.MediaFile) (domain.Combination, error) {
	combination = catalog.Normalize(combination)
	if !media.Empty() {
		ref, err := g.PutMedia(ctx, *media)
		if err != nil {
			return domain.Combination{}, err
		}
		combination.ImageRef = ref
	}
	if combination.ImageRef == "" {
		return domain.Combination{}, domain.ErrImageRequired
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := catalog.KeyOfCombination(combination)
	for id, existing := range g.combinations {
		if catalog.KeyOfCombination(existing) != key {
			continue
		}
		delete(g.combinations, id)
	}

	combination.ID = uuid.NewString()
	combination.CreatedAt = g.now()
	g.combinations[combination.ID] = combination
	return combination, nil
}

// DeleteCombination удаляет комбинацию и её изображение.
func (g *gatewayInMemory) DeleteCombination(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.combinations[id]
	if !ok {
		return domain.ErrCombinationNotFound
	}
	delete(g.combinations, id)
	delete(g.media, existing.ImageRef)
	return nil
}

func (g *gatewayInMemory) ListOrders(context.Context) ([]domain.Order, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]domain.Order, 0, len(g.orders))
	for _, o := range g.orders {
		result = append(result, o.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Number < result[j].Number
	})
	return result, nil
}

// CreateOrder назначает идентификатор, номер и время создания.
func (g *gatewayInMemory) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	number, err := g.NextOrderNumber(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	order = order.Clone()
	order.ID = uuid.NewString()
	order.Number = number
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	g.orders[order.ID] = order
	return order.Clone(), nil
}

func (g *gatewayInMemory) SetOrderStatus(_ context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = g.now()
	g.orders[id] = order
	return nil
}

func (g *gatewayInMemory) DeleteOrder(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(g.orders, id)
	return nil
}

// NextOrderNumber выдаёт следующий номер под блокировкой или через внешний счётчик.
func (g *gatewayInMemory) NextOrderNumber(ctx context.Context) (int64, error) {
	if g.allocator != nil {
		return g.allocator.NextOrderNumber(ctx)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastNumber++
	return g.lastNumber, nil
}

// SeedOrderNumber поднимает счётчик не ниже floor.
func (g *gatewayInMemory) SeedOrderNumber(ctx context.Context, floor int64) error {
	if seeder, ok := g.allocator.(domain.OrderNumberSeeder); ok {
		return seeder.SeedOrderNumber(ctx, floor)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if floor > g.lastNumber {
		g.lastNumber = floor
	}
	return nil
}

// PutMedia сохраняет изображение и возвращает ссылку вида mem://<uuid>/<name>.
func (g *gatewayInMemory) PutMedia(_ context.Context, file domain.MediaFile) (string, error) {
	if len(file.Data) == 0 {
		return "", domain.ErrImageRequired
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	ref := "mem://" + uuid.NewString() + "/" + file.Name
	data := make([]byte, len(file.Data))
	copy(data, file.Data)
	file.Data = data
	g.media[ref] = file
	return ref, nil
}

// GetMedia возвращает копию изображения.
func (g *gatewayInMemory) GetMedia(_ context.Context, ref string) (domain.MediaFile, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	file, ok := g.media[ref]
	if !ok {
		return domain.MediaFile{}, domain.ErrMediaNotFound
	}
	data := make([]byte, len(file.Data))
	copy(data, file.Data)
	file.Data = data
	return file, nil
}

// DeleteMedia удаляет изображение.
func (g *gatewayInMemory) DeleteMedia(_ context.Context, ref string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.media[ref]; !ok {
		return domain.ErrMediaNotFound
	}
	delete(g.media, ref)
	return nil
}

var _ Gateway = (*gatewayInMemory)(nil)
