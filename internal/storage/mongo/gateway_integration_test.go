package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const defaultLocalIntegrationURI = "mongodb://localhost:27017"

func openGatewayForIntegrationTest(t *testing.T, options ...GatewayOption) *Gateway {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv("STITCHBOARD_MONGO_TEST_URI"))
	if uri == "" {
		uri = defaultLocalIntegrationURI
	}
	database := "stitchboard_test_" + primitive.NewObjectID().Hex()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	store, err := Open(ctx, uri, database)
	if err != nil {
		t.Skipf("mongo is not available for integration tests: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Database().Drop(ctx)
		_ = store.Close(ctx)
	})
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return NewGateway(store, options...)
}

func TestGateway_MongoRankedCollections(t *testing.T) {
	gw := openGatewayForIntegrationTest(t)
	ctx := context.Background()

	a, err := gw.CreateCustomer(ctx, domain.Customer{Name: "A", Rank: 0})
	require.NoError(t, err)
	b, err := gw.CreateCustomer(ctx, domain.Customer{Name: "B", Rank: 1})
	require.NoError(t, err)

	require.NoError(t, gw.ReorderCustomers(ctx, []domain.RankEntry{{ID: b.ID, Rank: 0}, {ID: a.ID, Rank: 1}}))
	customers, err := gw.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, []string{b.ID, a.ID}, []string{customers[0].ID, customers[1].ID})

	color, err := gw.CreateColor(ctx, domain.Color{Name: "Kırmızı", Code: "#c0392b"})
	require.NoError(t, err)
	colors, err := gw.ListColors(ctx)
	require.NoError(t, err)
	require.Len(t, colors, 1)
	assert.Equal(t, "#c0392b", colors[0].Code)

	require.NoError(t, gw.DeleteColor(ctx, color.ID))
	assert.ErrorIs(t, gw.DeleteColor(ctx, color.ID), domain.ErrColorNotFound)
	assert.ErrorIs(t, gw.DeleteCustomer(ctx, "not-an-object-id"), domain.ErrCustomerNotFound)
}

func TestGateway_MongoCombinationMediaInGridFS(t *testing.T) {
	gw := openGatewayForIntegrationTest(t)
	ctx := context.Background()
	colorID := primitive.NewObjectID().Hex()

	base := domain.Combination{
		ProductType: domain.ProductTypeFleece,
		ColorID:     colorID,
		Variant:     domain.KeyFor(domain.ProductTypeFleece, domain.VariantFields{FleeceModel: "fermuarli"}),
	}
	first, err := gw.CreateCombination(ctx, base, &domain.MediaFile{Name: "a.jpg", ContentType: "image/jpeg", Data: []byte("first")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ImageRef, gridFSRefPrefix))

	second, err := gw.CreateCombination(ctx, base, &domain.MediaFile{Name: "b.jpg", ContentType: "image/jpeg", Data: []byte("second")})
	require.NoError(t, err)

	list, err := gw.ListCombinations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, colorID, list[0].ColorID)

	old, err := gw.GetMedia(ctx, first.ImageRef)
	require.NoError(t, err)
	assert.Equal(t, "first", string(old.Data))

	media, err := gw.GetMedia(ctx, second.ImageRef)
	require.NoError(t, err)
	assert.Equal(t, "second", string(media.Data))
	assert.Equal(t, "image/jpeg", media.ContentType)
	assert.Equal(t, "b.jpg", media.Name)

	require.NoError(t, gw.DeleteCombination(ctx, second.ID))
	_, err = gw.GetMedia(ctx, second.ImageRef)
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)
}

func TestGateway_MongoOrdersAndCounter(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	gw := openGatewayForIntegrationTest(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, gw.SeedOrderNumber(ctx, 10))
	require.NoError(t, gw.SeedOrderNumber(ctx, 3))

	created, err := gw.CreateOrder(ctx, domain.Order{
		ProductType: domain.ProductTypeSuprem,
		CustomerID:  primitive.NewObjectID().Hex(),
		ColorID:     primitive.NewObjectID().Hex(),
		Variant:     domain.KeyFor(domain.ProductTypeSuprem, domain.VariantFields{SleeveType: "kisa", CollarType: "v"}),
		Sizes:       domain.SizeTable{"S": 2},
		TotalUnits:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.Number)
	assert.Equal(t, domain.OrderStatusPending, created.Status)

	require.NoError(t, gw.SetOrderStatus(ctx, created.ID, domain.OrderStatusCancelled))
	orders, err := gw.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusCancelled, orders[0].Status)
	assert.Equal(t, 2, orders[0].Sizes["S"])

	require.NoError(t, gw.DeleteOrder(ctx, created.ID))
	assert.ErrorIs(t, gw.DeleteOrder(ctx, created.ID), domain.ErrOrderNotFound)
	assert.ErrorIs(t, gw.SetOrderStatus(ctx, created.ID, domain.OrderStatusPending), domain.ErrOrderNotFound)
}
