package domain

import (
	"sort"
	"time"
)

// OrderStatus описывает жизненный цикл производственного заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ принят и ожидает производства.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — заказ выполнен.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition проверяет допустимость перехода. Повторная установка текущего статуса допустима.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case OrderStatusPending:
		return to == OrderStatusCompleted || to == OrderStatusCancelled
	case OrderStatusCompleted, OrderStatusCancelled:
		return to == OrderStatusPending
	default:
		return false
	}
}

// PrintPosition — расположение вышивки/печати на изделии.
type PrintPosition string

const (
	PrintFront            PrintPosition = "on"
	PrintFrontBack        PrintPosition = "on-arka"
	PrintFrontOneSleeve   PrintPosition = "on-1kol"
	PrintFrontSleeves     PrintPosition = "on-kollar"
	PrintBack             PrintPosition = "arka"
	PrintBackOneSleeve    PrintPosition = "arka-1kol"
	PrintBackSleeves      PrintPosition = "arka-kollar"
	PrintOneSleeve        PrintPosition = "1kol"
	PrintSleeves          PrintPosition = "kollar"
	PrintFrontBackSleeves PrintPosition = "on-arka-kollar"
	PrintToBeSewn         PrintPosition = "dikilecek"
	PrintToBeAsked        PrintPosition = "sorulacak"
)

// StandardSizes — стандартная размерная сетка; дополнительные размеры допускаются.
var StandardSizes = []string{"XS", "S", "M", "L", "XL", "XXL", "3XL", "4XL"}

// SizeTable хранит количество изделий по размерам.
type SizeTable map[string]int

// Total возвращает сумму по всем размерам.
func (t SizeTable) Total() int {
	total := 0
	for _, qty := range t {
		total += qty
	}
	return total
}

// Clone возвращает независимую копию таблицы.
func (t SizeTable) Clone() SizeTable {
	if t == nil {
		return nil
	}
	out := make(SizeTable, len(t))
	for size, qty := range t {
		out[size] = qty
	}
	return out
}

// Labels возвращает размеры: сначала стандартные по порядку сетки, затем дополнительные по алфавиту.
func (t SizeTable) Labels() []string {
	known := make(map[string]bool, len(StandardSizes))
	labels := make([]string, 0, len(t))
	for _, size := range StandardSizes {
		known[size] = true
		if _, ok := t[size]; ok {
			labels = append(labels, size)
		}
	}
	extra := make([]string, 0)
	for size := range t {
		if !known[size] {
			extra = append(extra, size)
		}
	}
	sort.Strings(extra)
	return append(labels, extra...)
}

// Order — производственный заказ.
type Order struct {
	ID            string
	Number        int64
	ProductType   ProductType
	CustomerID    string
	CustomerName  string
	ColorID       string
	ColorName     string
	Variant       VariantKey
	PrintPosition PrintPosition
	Sizes         SizeTable
	// TotalUnits фиксируется при создании и дальше не пересчитывается.
	TotalUnits int
	Note       string
	Status     OrderStatus
	// CombinationImageRef вычисляется один раз при создании заказа.
	CombinationImageRef string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Fields возвращает плоские атрибуты варианта заказа.
func (o Order) Fields() VariantFields {
	return FieldsOf(o.Variant)
}

// Clone возвращает копию заказа с независимой таблицей размеров.
func (o Order) Clone() Order {
	o.Sizes = o.Sizes.Clone()
	return o
}

// OrderDraft — данные нового заказа до присвоения номера, статуса и итогов.
type OrderDraft struct {
	ProductType   ProductType `validate:"required"`
	CustomerID    string      `validate:"required"`
	CustomerName  string
	ColorID       string `validate:"required"`
	ColorName     string
	Variant       VariantFields
	PrintPosition PrintPosition
	Sizes         SizeTable
	Note          string
}
