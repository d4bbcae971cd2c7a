package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

func combo(id string, p domain.ProductType, colorID string, f domain.VariantFields, image string) domain.Combination {
	return domain.Combination{
		ID:          id,
		ProductType: p,
		ColorID:     colorID,
		Variant:     domain.KeyFor(p, f),
		ImageRef:    image,
	}
}

func TestFindSleeveCollarFamily(t *testing.T) {
	list := []domain.Combination{
		combo("k1", domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "kisa", CollarType: "bisiklet"}, "img-short"),
		combo("k2", domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "uzun", CollarType: "bisiklet"}, "img-long"),
	}

	found, ok := Find(list, domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "uzun", CollarType: "bisiklet", ThreadModel: "ignored"})
	require.True(t, ok)
	assert.Equal(t, "img-long", found.ImageRef)

	_, ok = Find(list, domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "uzun", CollarType: "v"})
	assert.False(t, ok)

	_, ok = Find(list, domain.ProductTypeLakost, "c1", domain.VariantFields{SleeveType: "uzun", CollarType: "bisiklet"})
	assert.False(t, ok)
}

func TestFindThreeThreadIgnoresSleeveAndCollar(t *testing.T) {
	list := []domain.Combination{
		combo("k1", domain.ProductTypeThreeThread, "c1", domain.VariantFields{ThreadModel: "sweat", SleeveType: "kisa", CollarType: "v"}, "img1"),
	}

	found, ok := Find(list, domain.ProductTypeThreeThread, "c1", domain.VariantFields{ThreadModel: "sweat", SleeveType: "uzun", CollarType: "polo"})
	require.True(t, ok)
	assert.Equal(t, "k1", found.ID)

	updated, _, replaced := Upsert(list, combo("k2", domain.ProductTypeThreeThread, "c1", domain.VariantFields{ThreadModel: "sweat", SleeveType: "uzun"}, "img2"))
	assert.True(t, replaced)
	assert.Len(t, updated, 1)
}

func TestFindFleeceFamily(t *testing.T) {
	list := []domain.Combination{
		combo("k1", domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "hooded-coat"}, "img1"),
	}

	found, ok := Find(list, domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "hooded-coat", CollarType: "polo"})
	require.True(t, ok)
	assert.Equal(t, "img1", found.ImageRef)

	_, ok = Find(list, domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "vest"})
	assert.False(t, ok)
}

func TestFindNormalizesPopulatedColor(t *testing.T) {
	list := []domain.Combination{
		combo("k1", domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "m"}, "img1"),
	}

	found, ok := Find(list, domain.ProductTypeFleece, map[string]any{"_id": "c1", "name": "Beyaz"}, domain.VariantFields{FleeceModel: "m"})
	require.True(t, ok)
	assert.Equal(t, "k1", found.ID)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	first := combo("k1", domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "kisa", CollarType: "bisiklet"}, "img1")
	second := combo("k2", domain.ProductTypeSuprem, "c2", domain.VariantFields{SleeveType: "kisa", CollarType: "bisiklet"}, "img2")
	list := []domain.Combination{first, second}

	updated, previous, replaced := Upsert(list, combo("k3", domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "kisa", CollarType: "bisiklet"}, "img3"))
	require.True(t, replaced)
	assert.Equal(t, "k1", previous.ID)
	require.Len(t, updated, 2)
	assert.Equal(t, "k3", updated[0].ID)
	assert.Equal(t, "img3", updated[0].ImageRef)
	assert.Equal(t, "k1", list[0].ID, "input must not be modified")
}

func TestUpsertAppendsNewKey(t *testing.T) {
	list := []domain.Combination{
		combo("k1", domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "kisa", CollarType: "bisiklet"}, "img1"),
	}

	updated, _, replaced := Upsert(list, combo("k2", domain.ProductTypeSuprem, "c1", domain.VariantFields{SleeveType: "kisa", CollarType: "polo"}, "img2"))
	assert.False(t, replaced)
	require.Len(t, updated, 2)
	assert.Equal(t, "k2", updated[1].ID)
}

func TestRemoveAndReplace(t *testing.T) {
	list := []domain.Combination{
		combo("k1", domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "a"}, "img1"),
		combo("k2", domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "b"}, "img2"),
	}

	replaced, ok := Replace(list, "k2", combo("srv-2", domain.ProductTypeFleece, "c1", domain.VariantFields{FleeceModel: "b"}, "https://cdn/img2"))
	require.True(t, ok)
	assert.Equal(t, "srv-2", replaced[1].ID)

	_, ok = Replace(list, "missing", domain.Combination{})
	assert.False(t, ok)

	remaining, removed, ok := Remove(replaced, "k1")
	require.True(t, ok)
	assert.Equal(t, "img1", removed.ImageRef)
	require.Len(t, remaining, 1)
	assert.Equal(t, "srv-2", remaining[0].ID)

	_, _, ok = Remove(remaining, "k1")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	c := FromDraft(domain.CombinationDraft{
		ProductType: domain.ProductTypeSuprem,
		ColorID:     "c1",
		Variant:     domain.VariantFields{SleeveType: "kisa", CollarType: "bisiklet"},
	}, "Beyaz")
	assert.Equal(t, "Süprem - Beyaz - Kısa Kol - Bisiklet Yaka", c.DisplayName)

	fleece := FromDraft(domain.CombinationDraft{
		ProductType: domain.ProductTypeFleece,
		ColorID:     "c1",
		Variant:     domain.VariantFields{FleeceModel: "hooded-coat", SleeveType: "kisa"},
		DisplayName: "Kapşonlu",
	}, "Siyah")
	assert.Equal(t, "Kapşonlu", fleece.DisplayName)
	assert.Equal(t, "Polar - Siyah - hooded-coat", DisplayName(fleece, "Siyah"))
}
