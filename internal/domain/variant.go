package domain

import "strings"

// ProductType — тип изделия (ткань/модель), определяет набор различающих атрибутов.
type ProductType string

const (
	ProductTypeSuprem      ProductType = "suprem"
	ProductTypeLakost      ProductType = "lakost"
	ProductTypeYagmurdesen ProductType = "yagmurdesen"
	// ProductTypeThreeThread — трёхнитка: различается только моделью.
	ProductTypeThreeThread ProductType = "3iplik"
	// ProductTypeFleece — флис: различается только моделью флиса.
	ProductTypeFleece ProductType = "polar"
)

// Family группирует типы изделий по форме ключа варианта.
type Family int

const (
	FamilySleeveCollar Family = iota
	FamilyThreeThread
	FamilyFleece
)

func (f Family) String() string {
	switch f {
	case FamilyThreeThread:
		return "three-thread"
	case FamilyFleece:
		return "fleece"
	default:
		return "sleeve-collar"
	}
}

// Family возвращает семейство типа изделия. Неизвестные типы относятся к sleeve/collar.
func (p ProductType) Family() Family {
	switch p {
	case ProductTypeThreeThread:
		return FamilyThreeThread
	case ProductTypeFleece:
		return FamilyFleece
	default:
		return FamilySleeveCollar
	}
}

// Label возвращает человекочитаемое название типа.
func (p ProductType) Label() string {
	switch p {
	case ProductTypeSuprem:
		return "Süprem"
	case ProductTypeLakost:
		return "Lakost"
	case ProductTypeYagmurdesen:
		return "Yağmur Desen"
	case ProductTypeThreeThread:
		return "3 İplik"
	case ProductTypeFleece:
		return "Polar"
	default:
		return string(p)
	}
}

// ProductTypes перечисляет известные типы в порядке отображения.
func ProductTypes() []ProductType {
	return []ProductType{
		ProductTypeSuprem,
		ProductTypeLakost,
		ProductTypeYagmurdesen,
		ProductTypeThreeThread,
		ProductTypeFleece,
	}
}

// SleeveType — тип рукава.
type SleeveType string

const (
	SleeveShort       SleeveType = "kisa"
	SleeveLong        SleeveType = "uzun"
	SleeveSleeveless  SleeveType = "yetim"
	SleeveShortRibbed SleeveType = "kisa-ribanali"
)

// Label возвращает название рукава для отображения.
func (s SleeveType) Label() string {
	switch s {
	case SleeveShort:
		return "Kısa Kol"
	case SleeveLong:
		return "Uzun Kol"
	case SleeveSleeveless:
		return "Yetim Kol"
	case SleeveShortRibbed:
		return "Kısa Kol Ribanalı"
	default:
		return string(s)
	}
}

// CollarType — тип воротника.
type CollarType string

const (
	CollarCrew CollarType = "bisiklet"
	CollarV    CollarType = "v"
	CollarPolo CollarType = "polo"
)

// Label возвращает название воротника для отображения.
func (c CollarType) Label() string {
	switch c {
	case CollarCrew:
		return "Bisiklet Yaka"
	case CollarV:
		return "V Yaka"
	case CollarPolo:
		return "Polo Yaka"
	default:
		return string(c)
	}
}

// DefaultCollar возвращает воротник, предлагаемый по умолчанию для типа изделия.
func DefaultCollar(p ProductType) CollarType {
	if p == ProductTypeLakost {
		return CollarPolo
	}
	return CollarCrew
}

// VariantFields — «плоское» представление атрибутов варианта, как оно приходит из хранилища или API.
// Какие поля значимы, решает семейство типа изделия.
type VariantFields struct {
	SleeveType  string `json:"sleeveType,omitempty"`
	CollarType  string `json:"collarType,omitempty"`
	ThreadModel string `json:"threadModel,omitempty"`
	FleeceModel string `json:"fleeceModel,omitempty"`
}

// VariantKey — ключ варианта, различающий комбинации внутри семейства.
// Реализации сравнимы через ==, включая динамический тип.
type VariantKey interface {
	Family() Family
	Fields() VariantFields
	String() string
	variantKey()
}

// SleeveCollarKey — ключ для типов с рукавом и воротником.
type SleeveCollarKey struct {
	Sleeve SleeveType
	Collar CollarType
}

func (SleeveCollarKey) Family() Family { return FamilySleeveCollar }

func (k SleeveCollarKey) Fields() VariantFields {
	return VariantFields{SleeveType: string(k.Sleeve), CollarType: string(k.Collar)}
}

func (k SleeveCollarKey) String() string { return string(k.Sleeve) + "/" + string(k.Collar) }

func (SleeveCollarKey) variantKey() {}

// ThreadKey — ключ трёхнитки.
type ThreadKey struct {
	ThreadModel string
}

func (ThreadKey) Family() Family { return FamilyThreeThread }

func (k ThreadKey) Fields() VariantFields { return VariantFields{ThreadModel: k.ThreadModel} }

func (k ThreadKey) String() string { return "thread:" + k.ThreadModel }

func (ThreadKey) variantKey() {}

// FleeceKey — ключ флиса.
type FleeceKey struct {
	FleeceModel string
}

func (FleeceKey) Family() Family { return FamilyFleece }

func (k FleeceKey) Fields() VariantFields { return VariantFields{FleeceModel: k.FleeceModel} }

func (k FleeceKey) String() string { return "fleece:" + k.FleeceModel }

func (FleeceKey) variantKey() {}

// KeyFor проецирует плоские поля на ключ семейства типа изделия.
// Поля, не относящиеся к семейству, отбрасываются.
func KeyFor(p ProductType, f VariantFields) VariantKey {
	switch p.Family() {
	case FamilyThreeThread:
		return ThreadKey{ThreadModel: strings.TrimSpace(f.ThreadModel)}
	case FamilyFleece:
		return FleeceKey{FleeceModel: strings.TrimSpace(f.FleeceModel)}
	default:
		return SleeveCollarKey{
			Sleeve: SleeveType(strings.TrimSpace(f.SleeveType)),
			Collar: CollarType(strings.TrimSpace(f.CollarType)),
		}
	}
}

// FieldsOf безопасно разворачивает ключ (nil допустим).
func FieldsOf(k VariantKey) VariantFields {
	if k == nil {
		return VariantFields{}
	}
	return k.Fields()
}
