package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

func TestRefIDDecodesStoredReferences(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name string
		raw  bson.D
	}{
		{name: "object id", raw: bson.D{{Key: "customer", Value: oid}}},
		{name: "plain string", raw: bson.D{{Key: "customer", Value: oid.Hex()}}},
		{name: "populated document", raw: bson.D{{Key: "customer", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "name", Value: "Atölye A"},
		}}}},
		{name: "populated with id field", raw: bson.D{{Key: "customer", Value: bson.D{
			{Key: "id", Value: oid.Hex()},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(tt.raw)
			require.NoError(t, err)

			var doc orderDoc
			require.NoError(t, bson.Unmarshal(data, &doc))
			assert.Equal(t, oid.Hex(), refID(doc.Customer))
		})
	}
}

func TestRefIDEmpty(t *testing.T) {
	assert.Equal(t, "", refID(nil))
	assert.Equal(t, "", refID(bson.D{{Key: "name", Value: "no id"}}))
}

func TestOrderDocRoundTrip(t *testing.T) {
	customer := primitive.NewObjectID().Hex()
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	order := domain.Order{
		Number:        7,
		ProductType:   domain.ProductTypeLakost,
		CustomerID:    customer,
		CustomerName:  "Atölye A",
		ColorID:       "legacy-color",
		ColorName:     "Beyaz",
		Variant:       domain.KeyFor(domain.ProductTypeLakost, domain.VariantFields{SleeveType: "uzun", CollarType: "polo"}),
		PrintPosition: domain.PrintBack,
		Sizes:         domain.SizeTable{"L": 4},
		TotalUnits:    4,
		Status:        domain.OrderStatusPending,
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	doc := orderDocOf(order)
	doc.ID = primitive.NewObjectID()
	_, isObjectID := doc.Customer.(primitive.ObjectID)
	assert.True(t, isObjectID, "hex id should be stored as ObjectID")
	assert.Equal(t, "legacy-color", doc.Color)

	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded orderDoc
	require.NoError(t, bson.Unmarshal(data, &decoded))

	got := decoded.toDomain()
	assert.Equal(t, doc.ID.Hex(), got.ID)
	assert.Equal(t, customer, got.CustomerID)
	assert.Equal(t, "legacy-color", got.ColorID)
	assert.Equal(t, "uzun", got.Fields().SleeveType)
	assert.Equal(t, "polo", got.Fields().CollarType)
	assert.Equal(t, 4, got.Sizes["L"])
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestParseGridFSRef(t *testing.T) {
	oid := primitive.NewObjectID()

	id, ok := parseGridFSRef(gridFSRefPrefix + oid.Hex() + "/front.png")
	require.True(t, ok)
	assert.Equal(t, oid, id)

	_, ok = parseGridFSRef("pg://" + oid.Hex() + "/front.png")
	assert.False(t, ok)
	_, ok = parseGridFSRef(gridFSRefPrefix + "not-hex/front.png")
	assert.False(t, ok)
}
