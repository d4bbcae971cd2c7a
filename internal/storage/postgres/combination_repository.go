package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/stitchboard/internal/catalog"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// ListCombinations возвращает все комбинации.
func (g *Gateway) ListCombinations(ctx context.Context) ([]domain.Combination, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, `
		SELECT id, product_type, color_id, sleeve_type, collar_type, thread_model, fleece_model,
		       image_ref, display_name, created_at
		FROM combinations
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list combinations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Combination, 0)
	for rows.Next() {
		var (
			c           domain.Combination
			productType string
			fields      domain.VariantFields
		)
		if err := rows.Scan(
			&c.ID, &productType, &c.ColorID,
			&fields.SleeveType, &fields.CollarType, &fields.ThreadModel, &fields.FleeceModel,
			&c.ImageRef, &c.DisplayName, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan combination: %w", err)
		}
		c.ProductType = domain.ProductType(productType)
		c.Variant = domain.KeyFor(c.ProductType, fields)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combinations: %w", err)
	}
	return result, nil
}

// CreateCombination сохраняет изображение и комбинацию одной транзакцией.
// Запись с тем же ключом удаляется вместе с её изображением.
func (g *Gateway) CreateCombination(ctx context.Context, combination domain.Combination, media *domain.MediaFile) (_ domain.Combination, err error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	combination = catalog.Normalize(combination)
	if media.Empty() && combination.ImageRef == "" {
		return domain.Combination{}, domain.ErrImageRequired
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Combination{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if !media.Empty() {
		combination.ImageRef, err = putMediaTx(ctx, tx, *media, g.now())
		if err != nil {
			return domain.Combination{}, err
		}
	}

	variantKey := combination.Variant.String()
	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM combinations
		WHERE product_type = $1 AND color_id = $2 AND variant_key = $3
		FOR UPDATE
	`, string(combination.ProductType), combination.ColorID, variantKey).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
	case err != nil:
		return domain.Combination{}, fmt.Errorf("select combination by key: %w", err)
	default:
		// медиа заменённой записи не трогаем: оно зафиксировано в заказах
		if _, err = tx.ExecContext(ctx, `DELETE FROM combinations WHERE id = $1`, existingID); err != nil {
			return domain.Combination{}, fmt.Errorf("delete replaced combination: %w", err)
		}
	}

	fields := combination.Fields()
	combination.ID = newID()
	combination.CreatedAt = g.now()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO combinations (
			id, product_type, color_id, variant_key, sleeve_type, collar_type, thread_model, fleece_model,
			image_ref, display_name, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		combination.ID, string(combination.ProductType), combination.ColorID, variantKey,
		fields.SleeveType, fields.CollarType, fields.ThreadModel, fields.FleeceModel,
		combination.ImageRef, combination.DisplayName, combination.CreatedAt,
	); err != nil {
		return domain.Combination{}, fmt.Errorf("insert combination: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Combination{}, fmt.Errorf("commit combination: %w", err)
	}
	return combination, nil
}

// DeleteCombination удаляет комбинацию и её изображение.
func (g *Gateway) DeleteCombination(ctx context.Context, id string) (err error) {
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

	var ref string
	err = tx.QueryRowContext(ctx, `DELETE FROM combinations WHERE id = $1 RETURNING image_ref`, id).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		err = domain.ErrCombinationNotFound
		return err
	}
	if err != nil {
		return fmt.Errorf("delete combination: %w", err)
	}
	if strings.HasPrefix(ref, mediaRefPrefix) {
		if _, err = tx.ExecContext(ctx, `DELETE FROM combination_media WHERE ref = $1`, ref); err != nil {
			return fmt.Errorf("delete combination media: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete combination: %w", err)
	}
	return nil
}
