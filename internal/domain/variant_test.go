package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductTypeFamily(t *testing.T) {
	assert.Equal(t, FamilySleeveCollar, ProductTypeSuprem.Family())
	assert.Equal(t, FamilySleeveCollar, ProductTypeLakost.Family())
	assert.Equal(t, FamilySleeveCollar, ProductTypeYagmurdesen.Family())
	assert.Equal(t, FamilyThreeThread, ProductTypeThreeThread.Family())
	assert.Equal(t, FamilyFleece, ProductTypeFleece.Family())
	assert.Equal(t, FamilySleeveCollar, ProductType("kasa").Family())
}

func TestKeyForProjectsFamilyFields(t *testing.T) {
	fields := VariantFields{
		SleeveType:  " kisa ",
		CollarType:  "polo",
		ThreadModel: "sweat",
		FleeceModel: "hooded-coat",
	}

	assert.Equal(t, SleeveCollarKey{Sleeve: SleeveShort, Collar: CollarPolo}, KeyFor(ProductTypeLakost, fields))
	assert.Equal(t, ThreadKey{ThreadModel: "sweat"}, KeyFor(ProductTypeThreeThread, fields))
	assert.Equal(t, FleeceKey{FleeceModel: "hooded-coat"}, KeyFor(ProductTypeFleece, fields))
}

func TestKeyForThreeThreadIgnoresSleeveAndCollar(t *testing.T) {
	a := KeyFor(ProductTypeThreeThread, VariantFields{ThreadModel: "m1", SleeveType: "kisa", CollarType: "v"})
	b := KeyFor(ProductTypeThreeThread, VariantFields{ThreadModel: "m1", SleeveType: "uzun"})

	assert.True(t, a == b)
	assert.Equal(t, VariantFields{ThreadModel: "m1"}, a.Fields())
}

func TestVariantKeysOfDifferentFamiliesDiffer(t *testing.T) {
	var thread VariantKey = ThreadKey{ThreadModel: ""}
	var fleece VariantKey = FleeceKey{FleeceModel: ""}

	assert.False(t, thread == fleece)
}

func TestFieldsOfNilKey(t *testing.T) {
	assert.Equal(t, VariantFields{}, FieldsOf(nil))
}

func TestDefaultCollar(t *testing.T) {
	assert.Equal(t, CollarPolo, DefaultCollar(ProductTypeLakost))
	assert.Equal(t, CollarCrew, DefaultCollar(ProductTypeSuprem))
	assert.Equal(t, CollarCrew, DefaultCollar(ProductTypeYagmurdesen))
}
