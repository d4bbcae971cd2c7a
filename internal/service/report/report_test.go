package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

var now = time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)

func order(id string, p domain.ProductType, customer, color string, units int, status domain.OrderStatus, at time.Time) domain.Order {
	return domain.Order{
		ID:           id,
		ProductType:  p,
		CustomerName: customer,
		ColorName:    color,
		Sizes:        domain.SizeTable{"M": units},
		TotalUnits:   units,
		Status:       status,
		CreatedAt:    at,
	}
}

func fixture() []domain.Order {
	return []domain.Order{
		order("o1", domain.ProductTypeSuprem, "Ahmet", "Beyaz", 10, domain.OrderStatusCompleted, now.AddDate(0, 0, -2)),
		order("o2", domain.ProductTypeFleece, "Ahmet", "Siyah", 5, domain.OrderStatusCompleted, now.AddDate(0, -2, 0)),
		order("o3", domain.ProductTypeSuprem, "Berk", "Beyaz", 4, domain.OrderStatusCompleted, now.AddDate(0, -8, 0)),
		order("o4", domain.ProductTypeSuprem, "Berk", "Beyaz", 100, domain.OrderStatusPending, now),
		order("o5", domain.ProductTypeLakost, "Cem", "Lacivert", 7, domain.OrderStatusCancelled, now),
	}
}

func TestBuildAllCompleted(t *testing.T) {
	r, err := Build(fixture(), Query{Now: now})
	require.NoError(t, err)

	assert.Equal(t, PeriodAll, r.Period)
	assert.Equal(t, 3, r.TotalOrders)
	assert.Equal(t, 19, r.TotalUnits)
	assert.Equal(t, 6.3, r.AverageUnits)

	require.Len(t, r.ByProductType, 2)
	assert.Equal(t, Bucket{Key: "suprem", Label: "Süprem", Units: 14, Orders: 2}, r.ByProductType[0])

	require.Len(t, r.ByCustomer, 2)
	assert.Equal(t, "Ahmet", r.ByCustomer[0].Key)
	assert.Equal(t, 15, r.ByCustomer[0].Units)

	assert.Equal(t, "Beyaz", r.ByColor[0].Key)
	assert.Equal(t, 14, r.ByColor[0].Units)
}

func TestBuildPeriods(t *testing.T) {
	tests := []struct {
		period Period
		orders int
		units  int
	}{
		{PeriodThisMonth, 1, 10},
		{PeriodLast3Months, 2, 15},
		{PeriodThisYear, 2, 15},
		{PeriodAll, 3, 19},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			r, err := Build(fixture(), Query{Period: tt.period, Now: now})
			require.NoError(t, err)
			assert.Equal(t, tt.orders, r.TotalOrders)
			assert.Equal(t, tt.units, r.TotalUnits)
		})
	}
}

func TestBuildUnknownPeriod(t *testing.T) {
	_, err := Build(nil, Query{Period: "decade"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestBuildEmpty(t *testing.T) {
	r, err := Build(nil, Query{Now: now})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.AverageUnits)
	assert.Empty(t, r.Customers.Items)
	assert.Equal(t, 0, r.Customers.Pages)
	assert.Len(t, r.Monthly, 12)
}

func TestBuildCustomerDetails(t *testing.T) {
	r, err := Build(fixture(), Query{Now: now})
	require.NoError(t, err)

	require.Len(t, r.Customers.Items, 2)
	ahmet := r.Customers.Items[0]
	assert.Equal(t, "Ahmet", ahmet.Name)
	assert.Equal(t, 2, ahmet.Orders)
	assert.Equal(t, map[string]int{"suprem": 10, "polar": 5}, ahmet.ByProductType)
	assert.Equal(t, now.AddDate(0, 0, -2), ahmet.LastOrderAt)
}

func TestBuildCustomerPagination(t *testing.T) {
	orders := make([]domain.Order, 0, 25)
	for i := 0; i < 25; i++ {
		orders = append(orders, order(fmt.Sprintf("o%d", i), domain.ProductTypeSuprem, fmt.Sprintf("Musteri %02d", i), "Beyaz", i+1, domain.OrderStatusCompleted, now))
	}

	r, err := Build(orders, Query{Now: now, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Customers.Pages)
	assert.Equal(t, 25, r.Customers.Total)
	assert.Equal(t, 3, r.Customers.Page)
	require.Len(t, r.Customers.Items, 5)
	assert.Equal(t, 5, r.Customers.Items[0].Units)

	r, err = Build(orders, Query{Now: now, Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Customers.Page)

	first, err := Build(orders, Query{Now: now})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Customers.Page)
	assert.Equal(t, 25, first.Customers.Items[0].Units)
}

func TestBuildMonthlyTrend(t *testing.T) {
	r, err := Build(fixture(), Query{Period: PeriodThisMonth, Now: now})
	require.NoError(t, err)

	require.Len(t, r.Monthly, 12)
	last := r.Monthly[11]
	assert.Equal(t, "2026-05", last.Month)
	assert.Equal(t, 1, last.Orders)
	assert.Equal(t, 10, last.Units)

	march := r.Monthly[9]
	assert.Equal(t, "2026-03", march.Month)
	assert.Equal(t, 5, march.ByProductType["polar"])

	september := r.Monthly[3]
	assert.Equal(t, "2025-09", september.Month)
	assert.Equal(t, 4, september.Units)
}

func TestBuildTopColors(t *testing.T) {
	orders := make([]domain.Order, 0, 7)
	for i := 0; i < 7; i++ {
		orders = append(orders, order(fmt.Sprintf("o%d", i), domain.ProductTypeSuprem, "Ahmet", fmt.Sprintf("Renk %d", i), i+1, domain.OrderStatusCompleted, now))
	}

	r, err := Build(orders, Query{Now: now})
	require.NoError(t, err)
	require.Len(t, r.TopColors, 5)
	assert.Equal(t, "Renk 6", r.TopColors[0].Key)
	assert.Len(t, r.ByColor, 7)
}

func TestBuildFilterExpression(t *testing.T) {
	r, err := Build(fixture(), Query{Now: now, Filter: `productType == "suprem" && units >= 5`})
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalOrders)
	assert.Equal(t, 10, r.TotalUnits)

	r, err = Build(fixture(), Query{Now: now, Filter: `customer startsWith "B"`})
	require.NoError(t, err)
	assert.Equal(t, 1, r.TotalOrders)

	_, err = Build(fixture(), Query{Now: now, Filter: `units +`})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = Build(fixture(), Query{Now: now, Filter: `units`})
	require.Error(t, err)
}
