package state

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/stitchboard/internal/catalog"
	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/stitchboard/internal/service/persist"
)

// SaveCombination сохраняет комбинацию с изображением. Запись с тем же ключом заменяется на месте;
// новая запись получает новый идентификатор. Без изображения комбинация не сохраняется.
func (c *Container) SaveCombination(draft domain.CombinationDraft, media *domain.MediaFile) (domain.Combination, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		c.record(domain.EntityCombination, opCreate, "rejected")
		return domain.Combination{}, err
	}
	if media.Empty() && draft.ImageRef == "" {
		c.record(domain.EntityCombination, opCreate, "rejected")
		return domain.Combination{}, domain.ErrImageRequired
	}

	draft.ColorID = c.aliases.resolve(domain.EntityColor, domain.CanonicalID(draft.ColorID))
	colorName := ""
	if color, ok := c.colors.Find(func(item domain.Color) bool { return item.ID == draft.ColorID }); ok {
		colorName = color.Name
	}

	combo := catalog.FromDraft(draft, colorName)
	combo.ID = lifecycle.NewPlaceholderID()
	combo.CreatedAt = c.now()

	var replaced domain.Combination
	var didReplace bool
	c.combinations.Update(func(current []domain.Combination) ([]domain.Combination, bool) {
		var next []domain.Combination
		next, replaced, didReplace = catalog.Upsert(current, combo)
		return next, true
	})
	if didReplace {
		c.logger.WithField("combination_id", replaced.ID).Debug("combination replaced by new upload")
	}
	c.record(domain.EntityCombination, opCreate, "applied")

	placeholder := combo
	var file *domain.MediaFile
	if !media.Empty() {
		copied := *media
		copied.Data = append([]byte(nil), media.Data...)
		file = &copied
	}
	var confirmed domain.Combination
	c.dispatcher.Enqueue(persist.Job{
		Entity: domain.EntityCombination,
		ID:     placeholder.ID,
		Op:     opCreate,
		Run: func(ctx context.Context) error {
			if c.aliases.removedBeforeConfirm(domain.EntityCombination, placeholder.ID) {
				return nil
			}
			toSave := placeholder
			toSave.ID = ""
			toSave.ColorID = c.aliases.resolve(domain.EntityColor, toSave.ColorID)
			saved, err := c.gateway.CreateCombination(ctx, toSave, file)
			if err != nil {
				return err
			}
			confirmed = saved
			return nil
		},
		OnCommit: func() {
			if confirmed.ID == "" {
				return
			}
			c.confirmCombination(placeholder.ID, confirmed)
			confirmed = domain.Combination{}
		},
		OnFail: func(err error) {
			c.failMutation(domain.EntityCombination, placeholder.ID, fmt.Sprintf("combination %q could not be saved", placeholder.DisplayName), err)
		},
	})
	return combo, nil
}

func (c *Container) confirmCombination(placeholderID string, confirmed domain.Combination) {
	c.aliases.set(domain.EntityCombination, placeholderID, confirmed.ID)
	c.dispatcher.Tracker().Rekey(domain.EntityCombination, placeholderID, confirmed.ID)
	c.combinations.Update(func(current []domain.Combination) ([]domain.Combination, bool) {
		return catalog.Replace(current, placeholderID, confirmed)
	})
	c.notify(domain.NotificationSuccess, domain.EntityCombination, confirmed.ID, fmt.Sprintf("combination %q saved", confirmed.DisplayName))
}

// DeleteCombination удаляет комбинацию. Уже созданные заказы сохраняют зафиксированную ссылку на изображение.
func (c *Container) DeleteCombination(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := c.aliases.resolve(domain.EntityCombination, id)
	var removed domain.Combination
	changed := c.combinations.Update(func(current []domain.Combination) ([]domain.Combination, bool) {
		next, item, ok := catalog.Remove(current, id)
		if !ok && resolved != id {
			next, item, ok = catalog.Remove(current, resolved)
		}
		removed = item
		return next, ok
	})
	if !changed {
		c.record(domain.EntityCombination, opDelete, "noop")
		return false
	}
	c.record(domain.EntityCombination, opDelete, "applied")

	id = removed.ID
	if lifecycle.IsPlaceholder(id) {
		c.aliases.markRemoved(domain.EntityCombination, id)
	}
	c.dispatcher.Enqueue(persist.Job{
		Entity: domain.EntityCombination,
		ID:     id,
		Op:     opDelete,
		Run: func(ctx context.Context) error {
			target := c.aliases.resolve(domain.EntityCombination, id)
			if lifecycle.IsPlaceholder(target) {
				return nil
			}
			err := c.gateway.DeleteCombination(ctx, target)
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		},
		OnFail: func(err error) {
			c.failMutation(domain.EntityCombination, id, fmt.Sprintf("combination %q could not be deleted", removed.DisplayName), err)
		},
	})
	return true
}

// FindCombination ищет комбинацию по типу изделия, цвету и атрибутам варианта.
func (c *Container) FindCombination(productType domain.ProductType, colorID any, fields domain.VariantFields) (domain.Combination, bool) {
	id := c.aliases.resolve(domain.EntityColor, domain.CanonicalID(colorID))
	return catalog.Find(c.combinations.Snapshot(), productType, id, fields)
}

func (c *Container) failMutation(entity domain.Entity, id, message string, err error) {
	c.logger.WithError(err).WithField("entity", entity).WithField("id", id).Warn(message)
	c.notify(domain.NotificationError, entity, id, message+": "+err.Error())
}
