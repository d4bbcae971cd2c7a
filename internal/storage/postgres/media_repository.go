package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// PutMedia сохраняет изображение в bytea и возвращает ссылку вида pg://<uuid>/<name>.
func (g *Gateway) PutMedia(ctx context.Context, file domain.MediaFile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	ref, err := putMediaTx(ctx, tx, file, g.now())
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit media: %w", err)
	}
	return ref, nil
}

// GetMedia возвращает изображение по ссылке.
func (g *Gateway) GetMedia(ctx context.Context, ref string) (domain.MediaFile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var file domain.MediaFile
	err := g.db.QueryRowContext(ctx, `
		SELECT name, content_type, data FROM combination_media WHERE ref = $1
	`, ref).Scan(&file.Name, &file.ContentType, &file.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MediaFile{}, domain.ErrMediaNotFound
	}
	if err != nil {
		return domain.MediaFile{}, fmt.Errorf("select media: %w", err)
	}
	return file, nil
}

// DeleteMedia удаляет изображение.
func (g *Gateway) DeleteMedia(ctx context.Context, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := g.db.ExecContext(ctx, `DELETE FROM combination_media WHERE ref = $1`, ref)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return rowsAffected(res, domain.ErrMediaNotFound)
}

func putMediaTx(ctx context.Context, tx *sql.Tx, file domain.MediaFile, now time.Time) (string, error) {
	if len(file.Data) == 0 {
		return "", domain.ErrImageRequired
	}
	ref := mediaRefPrefix + newID() + "/" + file.Name
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO combination_media (ref, name, content_type, data, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ref, file.Name, file.ContentType, file.Data, now); err != nil {
		return "", fmt.Errorf("insert media: %w", err)
	}
	return ref, nil
}
