// Package report строит аналитику по выполненным заказам.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// Period ограничивает выборку по дате создания заказа.
type Period string

const (
	PeriodAll         Period = "all"
	PeriodThisMonth   Period = "this-month"
	PeriodLast3Months Period = "last-3-months"
	PeriodThisYear    Period = "this-year"
)

const (
	// DefaultPageSize — число заказчиков на странице детализации.
	DefaultPageSize = 10
	trendMonths     = 12
	topColors       = 5
)

// Query — параметры отчёта.
type Query struct {
	Period Period
	// Filter — необязательное выражение expr над полями заказа, например `units >= 10 && productType == "polar"`.
	Filter   string
	Page     int
	PageSize int
	Now      time.Time
}

// Bucket — сумма изделий и заказов по ключу.
type Bucket struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Units  int    `json:"units"`
	Orders int    `json:"orders"`
}

// CustomerDetail — детализация по заказчику.
type CustomerDetail struct {
	Name          string         `json:"name"`
	Units         int            `json:"units"`
	Orders        int            `json:"orders"`
	ByProductType map[string]int `json:"byProductType"`
	LastOrderAt   time.Time      `json:"lastOrderAt"`
}

// CustomerPage — страница детализации по заказчикам.
type CustomerPage struct {
	Items []CustomerDetail `json:"items"`
	Page  int              `json:"page"`
	Pages int              `json:"pages"`
	Total int              `json:"total"`
}

// MonthBucket — точка помесячного тренда.
type MonthBucket struct {
	Month         string         `json:"month"`
	Orders        int            `json:"orders"`
	Units         int            `json:"units"`
	ByProductType map[string]int `json:"byProductType"`
}

// Report — результат расчёта.
type Report struct {
	Period        Period        `json:"period"`
	TotalOrders   int           `json:"totalOrders"`
	TotalUnits    int           `json:"totalUnits"`
	AverageUnits  float64       `json:"averageUnits"`
	ByProductType []Bucket      `json:"byProductType"`
	ByCustomer    []Bucket      `json:"byCustomer"`
	ByColor       []Bucket      `json:"byColor"`
	TopColors     []Bucket      `json:"topColors"`
	Customers     CustomerPage  `json:"customers"`
	Monthly       []MonthBucket `json:"monthly"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}

// ParsePeriod разбирает период; пустая строка означает all.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.TrimSpace(raw)); p {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodThisMonth, PeriodLast3Months, PeriodThisYear:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown report period %q", domain.ErrValidation, raw)
	}
}

// Build считает отчёт по выполненным заказам. Помесячный тренд строится по всем выполненным
// заказам за последние 12 месяцев независимо от периода.
func Build(orders []domain.Order, q Query) (Report, error) {
	period, err := ParsePeriod(string(q.Period))
	if err != nil {
		return Report{}, err
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	filter, err := compileFilter(q.Filter)
	if err != nil {
		return Report{}, err
	}

	completed := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != domain.OrderStatusCompleted {
			continue
		}
		ok, err := filter.match(o)
		if err != nil {
			return Report{}, err
		}
		if ok {
			completed = append(completed, o)
		}
	}

	selected := make([]domain.Order, 0, len(completed))
	for _, o := range completed {
		if inPeriod(o.CreatedAt, period, now) {
			selected = append(selected, o)
		}
	}

	r := Report{
		Period:      period,
		TotalOrders: len(selected),
		GeneratedAt: now,
	}
	byType := newAggregate()
	byCustomer := newAggregate()
	byColor := newAggregate()
	details := make(map[string]*CustomerDetail)
	for _, o := range selected {
		r.TotalUnits += o.TotalUnits
		byType.add(string(o.ProductType), o.ProductType.Label(), o.TotalUnits)
		byCustomer.add(o.CustomerName, o.CustomerName, o.TotalUnits)
		byColor.add(o.ColorName, o.ColorName, o.TotalUnits)

		d, ok := details[o.CustomerName]
		if !ok {
			d = &CustomerDetail{Name: o.CustomerName, ByProductType: make(map[string]int)}
			details[o.CustomerName] = d
		}
		d.Units += o.TotalUnits
		d.Orders++
		d.ByProductType[string(o.ProductType)] += o.TotalUnits
		if o.CreatedAt.After(d.LastOrderAt) {
			d.LastOrderAt = o.CreatedAt
		}
	}
	if r.TotalOrders > 0 {
		r.AverageUnits = math.Round(float64(r.TotalUnits)/float64(r.TotalOrders)*10) / 10
	}
	r.ByProductType = byType.sorted()
	r.ByCustomer = byCustomer.sorted()
	r.ByColor = byColor.sorted()
	r.TopColors = r.ByColor
	if len(r.TopColors) > topColors {
		r.TopColors = r.TopColors[:topColors]
	}
	r.Customers = paginate(details, q.Page, q.PageSize)
	r.Monthly = monthlyTrend(completed, now)
	return r, nil
}

func inPeriod(at time.Time, period Period, now time.Time) bool {
	switch period {
	case PeriodThisMonth:
		return at.Year() == now.Year() && at.Month() == now.Month()
	case PeriodLast3Months:
		return !at.Before(now.AddDate(0, -3, 0))
	case PeriodThisYear:
		return at.Year() == now.Year()
	default:
		return true
	}
}

func monthlyTrend(orders []domain.Order, now time.Time) []MonthBucket {
	trend := make([]MonthBucket, 0, trendMonths)
	for i := trendMonths - 1; i >= 0; i-- {
		month := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		bucket := MonthBucket{Month: month.Format("2006-01"), ByProductType: make(map[string]int)}
		for _, o := range orders {
			at := o.CreatedAt.In(now.Location())
			if at.Year() != month.Year() || at.Month() != month.Month() {
				continue
			}
			bucket.Orders++
			bucket.Units += o.TotalUnits
			bucket.ByProductType[string(o.ProductType)] += o.TotalUnits
		}
		trend = append(trend, bucket)
	}
	return trend
}

func paginate(details map[string]*CustomerDetail, page, pageSize int) CustomerPage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	all := make([]CustomerDetail, 0, len(details))
	for _, d := range details {
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Units != all[j].Units {
			return all[i].Units > all[j].Units
		}
		return all[i].Name < all[j].Name
	})

	pages := (len(all) + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return CustomerPage{Items: all[start:end], Page: page, Pages: pages, Total: len(all)}
}

type aggregate struct {
	buckets map[string]*Bucket
}

func newAggregate() *aggregate {
	return &aggregate{buckets: make(map[string]*Bucket)}
}

func (a *aggregate) add(key, label string, units int) {
	b, ok := a.buckets[key]
	if !ok {
		b = &Bucket{Key: key, Label: label}
		a.buckets[key] = b
	}
	b.Units += units
	b.Orders++
}

func (a *aggregate) sorted() []Bucket {
	out := make([]Bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].Key < out[j].Key
	})
	return out
}

type orderFilter struct {
	program *exprvm.Program
	source  string
}

// compileFilter компилирует выражение фильтра; пустое выражение пропускает все заказы.
func compileFilter(source string) (orderFilter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return orderFilter{}, nil
	}
	program, err := exprlang.Compile(source, exprlang.Env(filterEnv(domain.Order{})), exprlang.AsBool())
	if err != nil {
		return orderFilter{}, fmt.Errorf("%w: report filter: %v", domain.ErrValidation, err)
	}
	return orderFilter{program: program, source: source}, nil
}

func (f orderFilter) match(o domain.Order) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	out, err := exprlang.Run(f.program, filterEnv(o))
	if err != nil {
		return false, fmt.Errorf("evaluate report filter %q: %w", f.source, err)
	}
	matched, _ := out.(bool)
	return matched, nil
}

func filterEnv(o domain.Order) map[string]any {
	fields := o.Fields()
	sizes := make(map[string]int, len(o.Sizes))
	for size, qty := range o.Sizes {
		sizes[size] = qty
	}
	return map[string]any{
		"number":        o.Number,
		"productType":   string(o.ProductType),
		"family":        o.ProductType.Family().String(),
		"customer":      o.CustomerName,
		"customerId":    o.CustomerID,
		"color":         o.ColorName,
		"colorId":       o.ColorID,
		"sleeve":        fields.SleeveType,
		"collar":        fields.CollarType,
		"threadModel":   fields.ThreadModel,
		"fleeceModel":   fields.FleeceModel,
		"printPosition": string(o.PrintPosition),
		"units":         o.TotalUnits,
		"sizes":         sizes,
		"note":          o.Note,
		"month":         o.CreatedAt.Format("2006-01"),
		"createdAt":     o.CreatedAt,
	}
}
