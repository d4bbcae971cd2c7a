package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

const orderColumns = `
	id, number, product_type, customer_id, customer_name, color_id, color_name,
	sleeve_type, collar_type, thread_model, fleece_model, print_position, sizes,
	total_units, note, status, combination_image_ref, created_at, updated_at`

// ListOrders возвращает все заказы, новые первыми.
func (g *Gateway) ListOrders(ctx context.Context) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, number DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			order         domain.Order
			productType   string
			fields        domain.VariantFields
			printPosition string
			sizes         []byte
			status        string
		)
		if err := rows.Scan(
			&order.ID, &order.Number, &productType, &order.CustomerID, &order.CustomerName,
			&order.ColorID, &order.ColorName,
			&fields.SleeveType, &fields.CollarType, &fields.ThreadModel, &fields.FleeceModel,
			&printPosition, &sizes, &order.TotalUnits, &order.Note, &status,
			&order.CombinationImageRef, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.ProductType = domain.ProductType(productType)
		order.Variant = domain.KeyFor(order.ProductType, fields)
		order.PrintPosition = domain.PrintPosition(printPosition)
		order.Status = domain.OrderStatus(status)
		if len(sizes) > 0 {
			if err := json.Unmarshal(sizes, &order.Sizes); err != nil {
				return nil, fmt.Errorf("decode sizes of order %s: %w", order.ID, err)
			}
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// CreateOrder сохраняет заказ под номером из sequence (или внешнего аллокатора).
func (g *Gateway) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	number, err := g.NextOrderNumber(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order = order.Clone()
	now := g.now()
	order.ID = newID()
	order.Number = number
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.Sizes == nil {
		order.Sizes = domain.SizeTable{}
	}
	sizes, err := json.Marshal(order.Sizes)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode sizes: %w", err)
	}

	fields := order.Fields()
	if _, err := g.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb,$14,$15,$16,$17,$18,$19)
	`,
		order.ID, order.Number, string(order.ProductType), order.CustomerID, order.CustomerName,
		order.ColorID, order.ColorName,
		fields.SleeveType, fields.CollarType, fields.ThreadModel, fields.FleeceModel,
		string(order.PrintPosition), string(sizes), order.TotalUnits, order.Note, string(order.Status),
		order.CombinationImageRef, order.CreatedAt, order.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.Order{}, domain.ErrOrderNumberConflict
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// SetOrderStatus записывает новый статус без проверки перехода: её выполняет контроллер.
func (g *Gateway) SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), g.now())
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return rowsAffected(res, domain.ErrOrderNotFound)
}

// DeleteOrder удаляет заказ.
func (g *Gateway) DeleteOrder(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return rowsAffected(res, domain.ErrOrderNotFound)
}
