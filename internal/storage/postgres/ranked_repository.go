package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// ListCustomers возвращает заказчиков по возрастанию позиции.
func (g *Gateway) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, `
		SELECT id, name, rank, created_at
		FROM customers
		ORDER BY rank ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Rank, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return result, nil
}

// CreateCustomer сохраняет заказчика с новым идентификатором.
func (g *Gateway) CreateCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return domain.Customer{}, domain.ErrNameRequired
	}
	customer.ID = newID()
	customer.CreatedAt = g.now()
	if _, err := g.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, rank, created_at) VALUES ($1,$2,$3,$4)
	`, customer.ID, customer.Name, customer.Rank, customer.CreatedAt); err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return customer, nil
}

// DeleteCustomer удаляет заказчика.
func (g *Gateway) DeleteCustomer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return rowsAffected(res, domain.ErrCustomerNotFound)
}

// ReorderCustomers записывает снимок позиций одной транзакцией.
func (g *Gateway) ReorderCustomers(ctx context.Context, entries []domain.RankEntry) error {
	return g.reorder(ctx, "customers", entries)
}

// ListColors возвращает цвета по возрастанию позиции.
func (g *Gateway) ListColors(ctx context.Context) ([]domain.Color, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, `
		SELECT id, name, code, rank, created_at
		FROM colors
		ORDER BY rank ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Color, 0)
	for rows.Next() {
		var c domain.Color
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Rank, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan color: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate colors: %w", err)
	}
	return result, nil
}

// CreateColor сохраняет цвет с новым идентификатором.
func (g *Gateway) CreateColor(ctx context.Context, color domain.Color) (domain.Color, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	color.Name = strings.TrimSpace(color.Name)
	if color.Name == "" {
		return domain.Color{}, domain.ErrNameRequired
	}
	color.ID = newID()
	color.CreatedAt = g.now()
	if _, err := g.db.ExecContext(ctx, `
		INSERT INTO colors (id, name, code, rank, created_at) VALUES ($1,$2,$3,$4,$5)
	`, color.ID, color.Name, color.Code, color.Rank, color.CreatedAt); err != nil {
		return domain.Color{}, fmt.Errorf("insert color: %w", err)
	}
	return color, nil
}

// DeleteColor удаляет цвет.
func (g *Gateway) DeleteColor(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.ExecContext(ctx, `DELETE FROM colors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete color: %w", err)
	}
	return rowsAffected(res, domain.ErrColorNotFound)
}

// ReorderColors записывает снимок позиций одной транзакцией.
func (g *Gateway) ReorderColors(ctx context.Context, entries []domain.RankEntry) error {
	return g.reorder(ctx, "colors", entries)
}

// reorder обновляет позиции; неизвестные идентификаторы пропускаются.
func (g *Gateway) reorder(ctx context.Context, table string, entries []domain.RankEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// table задаётся только вызывающими методами этого файла
	query := `UPDATE ` + table + ` SET rank = $2 WHERE id = $1`
	for _, e := range entries {
		if _, err = tx.ExecContext(ctx, query, e.ID, e.Rank); err != nil {
			return fmt.Errorf("update %s rank: %w", table, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s reorder: %w", table, err)
	}
	return nil
}
