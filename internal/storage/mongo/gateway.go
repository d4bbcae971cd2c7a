package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/stitchboard/internal/catalog"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const orderNumberCounter = "order_number"

// Gateway — MongoDB-реализация Store Gateway; изображения лежат в GridFS.
type Gateway struct {
	store     *Store
	db        *mongo.Database
	now       func() time.Time
	allocator domain.OrderNumberAllocator
}

// GatewayOption настраивает Gateway.
type GatewayOption func(*Gateway)

// WithClock задаёт источник времени.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithNumberAllocator переносит выдачу номеров во внешний аллокатор.
func WithNumberAllocator(allocator domain.OrderNumberAllocator) GatewayOption {
	return func(g *Gateway) {
		g.allocator = allocator
	}
}

// NewGateway создаёт gateway поверх открытого Store.
func NewGateway(store *Store, options ...GatewayOption) *Gateway {
	g := &Gateway{
		store: store,
		db:    store.Database(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Ping проверяет доступность сервера.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}

// ListCustomers возвращает заказчиков по возрастанию позиции.
func (g *Gateway) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var docs []customerDoc
	if err := g.findAll(ctx, collCustomers, rankSort(), &docs); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	result := make([]domain.Customer, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, nil
}

// CreateCustomer сохраняет заказчика с новым ObjectID.
func (g *Gateway) CreateCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	name := strings.TrimSpace(customer.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrNameRequired
	}
	doc := customerDoc{ID: primitive.NewObjectID(), Name: name, Rank: customer.Rank, CreatedAt: g.now()}
	if err := g.insert(ctx, collCustomers, doc); err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return doc.toDomain(), nil
}

// DeleteCustomer удаляет заказчика.
func (g *Gateway) DeleteCustomer(ctx context.Context, id string) error {
	return g.deleteByID(ctx, collCustomers, id, domain.ErrCustomerNotFound)
}

// ReorderCustomers применяет пакет позиций одним bulk write.
func (g *Gateway) ReorderCustomers(ctx context.Context, entries []domain.RankEntry) error {
	return g.reorder(ctx, collCustomers, entries)
}

// ListColors возвращает цвета по возрастанию позиции.
func (g *Gateway) ListColors(ctx context.Context) ([]domain.Color, error) {
	var docs []colorDoc
	if err := g.findAll(ctx, collColors, rankSort(), &docs); err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	result := make([]domain.Color, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, nil
}

// CreateColor сохраняет цвет вместе с HEX-кодом.
func (g *Gateway) CreateColor(ctx context.Context, color domain.Color) (domain.Color, error) {
	name := strings.TrimSpace(color.Name)
	if name == "" {
		return domain.Color{}, domain.ErrNameRequired
	}
	doc := colorDoc{ID: primitive.NewObjectID(), Name: name, Code: color.Code, Rank: color.Rank, CreatedAt: g.now()}
	if err := g.insert(ctx, collColors, doc); err != nil {
		return domain.Color{}, fmt.Errorf("insert color: %w", err)
	}
	return doc.toDomain(), nil
}

// DeleteColor удаляет цвет.
func (g *Gateway) DeleteColor(ctx context.Context, id string) error {
	return g.deleteByID(ctx, collColors, id, domain.ErrColorNotFound)
}

// ReorderColors применяет пакет позиций одним bulk write.
func (g *Gateway) ReorderColors(ctx context.Context, entries []domain.RankEntry) error {
	return g.reorder(ctx, collColors, entries)
}

// ListCombinations возвращает все комбинации.
func (g *Gateway) ListCombinations(ctx context.Context) ([]domain.Combination, error) {
	var docs []combinationDoc
	sort := bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	if err := g.findAll(ctx, collCombinations, sort, &docs); err != nil {
		return nil, fmt.Errorf("list combinations: %w", err)
	}
	result := make([]domain.Combination, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, nil
}

// CreateCombination загружает изображение в GridFS и заменяет запись с тем же ключом.
// Без replica set транзакции недоступны, поэтому при ошибке вставки загруженный файл удаляется вручную.
func (g *Gateway) CreateCombination(ctx context.Context, combination domain.Combination, media *domain.MediaFile) (domain.Combination, error) {
	combination = catalog.Normalize(combination)
	if media.Empty() && combination.ImageRef == "" {
		return domain.Combination{}, domain.ErrImageRequired
	}

	uploaded := ""
	if !media.Empty() {
		ref, err := g.PutMedia(ctx, *media)
		if err != nil {
			return domain.Combination{}, err
		}
		uploaded = ref
		combination.ImageRef = ref
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := combinationDoc{
		ID:          primitive.NewObjectID(),
		ProductType: string(combination.ProductType),
		Color:       objectRef(combination.ColorID),
		VariantKey:  combination.Variant.String(),
		Variant:     variantOf(combination.Fields()),
		ImageRef:    combination.ImageRef,
		DisplayName: combination.DisplayName,
		CreatedAt:   g.now(),
	}

	coll := g.db.Collection(collCombinations)
	_, err := coll.DeleteOne(ctx, bson.D{
		{Key: "productType", Value: doc.ProductType},
		{Key: "color", Value: doc.Color},
		{Key: "variantKey", Value: doc.VariantKey},
	})
	if err != nil {
		g.dropUploaded(ctx, uploaded)
		return domain.Combination{}, fmt.Errorf("delete replaced combination: %w", err)
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		g.dropUploaded(ctx, uploaded)
		return domain.Combination{}, fmt.Errorf("insert combination: %w", err)
	}

	// файл заменённой записи остаётся в GridFS: на него ссылаются уже созданные заказы
	return doc.toDomain(), nil
}

// DeleteCombination удаляет комбинацию и её файл в GridFS.
func (g *Gateway) DeleteCombination(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrCombinationNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var deleted combinationDoc
	err = g.db.Collection(collCombinations).FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrCombinationNotFound
	}
	if err != nil {
		return fmt.Errorf("delete combination: %w", err)
	}
	if isGridFSRef(deleted.ImageRef) {
		if err := g.DeleteMedia(ctx, deleted.ImageRef); err != nil && !errors.Is(err, domain.ErrMediaNotFound) {
			return fmt.Errorf("delete combination media: %w", err)
		}
	}
	return nil
}

// ListOrders возвращает заказы, новые первыми.
func (g *Gateway) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var docs []orderDoc
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "number", Value: -1}}
	if err := g.findAll(ctx, collOrders, sort, &docs); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	result := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, nil
}

// CreateOrder сохраняет заказ под номером из счётчика counters.
func (g *Gateway) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	number, err := g.NextOrderNumber(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	now := g.now()
	order = order.Clone()
	order.Number = number
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.Sizes == nil {
		order.Sizes = domain.SizeTable{}
	}

	doc := orderDocOf(order)
	doc.ID = primitive.NewObjectID()
	if err := g.insert(ctx, collOrders, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Order{}, domain.ErrOrderNumberConflict
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return doc.toDomain(), nil
}

// SetOrderStatus записывает новый статус.
func (g *Gateway) SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrOrderNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.Collection(collOrders).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(status)},
			{Key: "updatedAt", Value: g.now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// DeleteOrder удаляет заказ.
func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	return g.deleteByID(ctx, collOrders, id, domain.ErrOrderNotFound)
}

// NextOrderNumber атомарно увеличивает счётчик через $inc с upsert.
func (g *Gateway) NextOrderNumber(ctx context.Context) (int64, error) {
	if g.allocator != nil {
		return g.allocator.NextOrderNumber(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := g.db.Collection(collCounters).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: orderNumberCounter}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return counter.Seq, nil
}

// SeedOrderNumber поднимает счётчик до floor, если он меньше; счётчик никогда не уменьшается.
func (g *Gateway) SeedOrderNumber(ctx context.Context, floor int64) error {
	if floor <= 0 {
		return nil
	}
	if seeder, ok := g.allocator.(domain.OrderNumberSeeder); ok {
		return seeder.SeedOrderNumber(ctx, floor)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := g.db.Collection(collCounters).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: orderNumberCounter}, {Key: "seq", Value: bson.D{{Key: "$lt", Value: floor}}}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "seq", Value: floor}}}},
		options.Update().SetUpsert(true),
	)
	// Дубликат означает, что счётчик уже не ниже floor и upsert попытался создать второй документ.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("seed order number: %w", err)
	}
	return nil
}

func (g *Gateway) findAll(ctx context.Context, collection string, sort bson.D, out any) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := g.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func (g *Gateway) insert(ctx context.Context, collection string, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := g.db.Collection(collection).InsertOne(ctx, doc)
	return err
}

func (g *Gateway) deleteByID(ctx context.Context, collection, id string, notFound error) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return notFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}

func (g *Gateway) reorder(ctx context.Context, collection string, entries []domain.RankEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(entries))
	for _, entry := range entries {
		oid, err := primitive.ObjectIDFromHex(entry.ID)
		if err != nil {
			return fmt.Errorf("reorder %s: invalid id %q", collection, entry.ID)
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: oid}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{{Key: "rank", Value: entry.Rank}}}}))
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := g.db.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("reorder %s: %w", collection, err)
	}
	return nil
}

func (g *Gateway) dropUploaded(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	_ = g.DeleteMedia(ctx, ref)
}

func rankSort() bson.D {
	return bson.D{{Key: "rank", Value: 1}, {Key: "_id", Value: 1}}
}

var (
	_ domain.Gateway              = (*Gateway)(nil)
	_ domain.OrderNumberAllocator = (*Gateway)(nil)
	_ domain.OrderNumberSeeder    = (*Gateway)(nil)
	_ domain.MediaStore           = (*Gateway)(nil)
	_ domain.Pinger               = (*Gateway)(nil)
)
