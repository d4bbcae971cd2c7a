package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

type customerDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Rank      int                `bson:"rank"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d customerDoc) toDomain() domain.Customer {
	return domain.Customer{ID: d.ID.Hex(), Name: d.Name, Rank: d.Rank, CreatedAt: d.CreatedAt.UTC()}
}

type colorDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Code      string             `bson:"code"`
	Rank      int                `bson:"rank"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d colorDoc) toDomain() domain.Color {
	return domain.Color{ID: d.ID.Hex(), Name: d.Name, Code: d.Code, Rank: d.Rank, CreatedAt: d.CreatedAt.UTC()}
}

// variantDoc — плоские атрибуты варианта, общие для комбинаций и заказов.
type variantDoc struct {
	SleeveType  string `bson:"sleeveType,omitempty"`
	CollarType  string `bson:"collarType,omitempty"`
	ThreadModel string `bson:"threadModel,omitempty"`
	FleeceModel string `bson:"fleeceModel,omitempty"`
}

func variantOf(f domain.VariantFields) variantDoc {
	return variantDoc{
		SleeveType:  f.SleeveType,
		CollarType:  f.CollarType,
		ThreadModel: f.ThreadModel,
		FleeceModel: f.FleeceModel,
	}
}

func (v variantDoc) fields() domain.VariantFields {
	return domain.VariantFields{
		SleeveType:  v.SleeveType,
		CollarType:  v.CollarType,
		ThreadModel: v.ThreadModel,
		FleeceModel: v.FleeceModel,
	}
}

// combinationDoc хранит ссылку на цвет как есть: ObjectID, строку или заполненный документ.
type combinationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	ProductType string             `bson:"productType"`
	Color       any                `bson:"color"`
	VariantKey  string             `bson:"variantKey"`
	Variant     variantDoc         `bson:",inline"`
	ImageRef    string             `bson:"imageRef"`
	DisplayName string             `bson:"displayName"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d combinationDoc) toDomain() domain.Combination {
	productType := domain.ProductType(d.ProductType)
	return domain.Combination{
		ID:          d.ID.Hex(),
		ProductType: productType,
		ColorID:     refID(d.Color),
		Variant:     domain.KeyFor(productType, d.Variant.fields()),
		ImageRef:    d.ImageRef,
		DisplayName: d.DisplayName,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type orderDoc struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Number              int64              `bson:"number"`
	ProductType         string             `bson:"productType"`
	Customer            any                `bson:"customer"`
	CustomerName        string             `bson:"customerName"`
	Color               any                `bson:"color"`
	ColorName           string             `bson:"colorName"`
	Variant             variantDoc         `bson:",inline"`
	PrintPosition       string             `bson:"printPosition"`
	Sizes               map[string]int     `bson:"sizes"`
	TotalUnits          int                `bson:"totalUnits"`
	Note                string             `bson:"note"`
	Status              string             `bson:"status"`
	CombinationImageRef string             `bson:"combinationImageRef"`
	CreatedAt           time.Time          `bson:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"`
}

func orderDocOf(o domain.Order) orderDoc {
	return orderDoc{
		Number:              o.Number,
		ProductType:         string(o.ProductType),
		Customer:            objectRef(o.CustomerID),
		CustomerName:        o.CustomerName,
		Color:               objectRef(o.ColorID),
		ColorName:           o.ColorName,
		Variant:             variantOf(o.Fields()),
		PrintPosition:       string(o.PrintPosition),
		Sizes:               o.Sizes.Clone(),
		TotalUnits:          o.TotalUnits,
		Note:                o.Note,
		Status:              string(o.Status),
		CombinationImageRef: o.CombinationImageRef,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func (d orderDoc) toDomain() domain.Order {
	productType := domain.ProductType(d.ProductType)
	return domain.Order{
		ID:                  d.ID.Hex(),
		Number:              d.Number,
		ProductType:         productType,
		CustomerID:          refID(d.Customer),
		CustomerName:        d.CustomerName,
		ColorID:             refID(d.Color),
		ColorName:           d.ColorName,
		Variant:             domain.KeyFor(productType, d.Variant.fields()),
		PrintPosition:       domain.PrintPosition(d.PrintPosition),
		Sizes:               domain.SizeTable(d.Sizes),
		TotalUnits:          d.TotalUnits,
		Note:                d.Note,
		Status:              domain.OrderStatus(d.Status),
		CombinationImageRef: d.CombinationImageRef,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
}

// objectRef хранит hex-идентификатор как ObjectID, остальные строки как есть.
func objectRef(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// refID разбирает ссылку из документа; вложенные документы BSON приводятся к map для CanonicalID.
func refID(raw any) string {
	switch v := raw.(type) {
	case primitive.D:
		m := make(map[string]any, len(v))
		for _, e := range v {
			m[e.Key] = e.Value
		}
		return domain.CanonicalID(m)
	case primitive.M:
		return domain.CanonicalID(map[string]any(v))
	case bson.Raw:
		var m map[string]any
		if err := bson.Unmarshal(v, &m); err != nil {
			return ""
		}
		return domain.CanonicalID(m)
	default:
		return domain.CanonicalID(v)
	}
}
