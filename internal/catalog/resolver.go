// Package catalog сопоставляет атрибуты заказа с эталонными изображениями комбинаций.
package catalog

import (
	"strings"

	"github.com/vladislavdragonenkov/stitchboard/internal/domain"
)

// Key — полный ключ комбинации. Сравним через ==.
type Key struct {
	ProductType domain.ProductType
	ColorID     string
	Variant     domain.VariantKey
}

// KeyOf строит ключ по типу изделия, цвету и плоским атрибутам.
// Идентификатор цвета приводится к каноническому виду.
func KeyOf(productType domain.ProductType, colorID any, fields domain.VariantFields) Key {
	return Key{
		ProductType: productType,
		ColorID:     domain.CanonicalID(colorID),
		Variant:     domain.KeyFor(productType, fields),
	}
}

// KeyOfCombination возвращает ключ сохранённой комбинации.
func KeyOfCombination(c domain.Combination) Key {
	return KeyOf(c.ProductType, c.ColorID, c.Fields())
}

// Find ищет комбинацию по ключу. Набор сравниваемых атрибутов определяется семейством типа изделия;
// остальные поля игнорируются. Отсутствие совпадения не является ошибкой.
func Find(list []domain.Combination, productType domain.ProductType, colorID any, fields domain.VariantFields) (domain.Combination, bool) {
	idx := indexOf(list, KeyOf(productType, colorID, fields))
	if idx < 0 {
		return domain.Combination{}, false
	}
	return list[idx], true
}

// Upsert заменяет комбинацию с тем же ключом на месте или добавляет новую в конец.
// Возвращает новый срез и заменённую запись, если она была.
func Upsert(list []domain.Combination, c domain.Combination) ([]domain.Combination, domain.Combination, bool) {
	c = Normalize(c)
	out := make([]domain.Combination, len(list), len(list)+1)
	copy(out, list)

	idx := indexOf(out, KeyOfCombination(c))
	if idx < 0 {
		return append(out, c), domain.Combination{}, false
	}
	replaced := out[idx]
	out[idx] = c
	return out, replaced, true
}

// Replace ставит confirmed на место записи с идентификатором id.
// Если записи уже нет (удалена), срез возвращается без изменений.
func Replace(list []domain.Combination, id string, confirmed domain.Combination) ([]domain.Combination, bool) {
	for i, c := range list {
		if c.ID != id {
			continue
		}
		out := make([]domain.Combination, len(list))
		copy(out, list)
		out[i] = Normalize(confirmed)
		return out, true
	}
	return list, false
}

// Remove удаляет комбинацию по идентификатору.
func Remove(list []domain.Combination, id string) ([]domain.Combination, domain.Combination, bool) {
	for i, c := range list {
		if c.ID != id {
			continue
		}
		out := make([]domain.Combination, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		return out, c, true
	}
	return list, domain.Combination{}, false
}

// Normalize приводит ссылку на цвет и ключ варианта к каноническому виду.
func Normalize(c domain.Combination) domain.Combination {
	c.ColorID = domain.CanonicalID(c.ColorID)
	c.Variant = domain.KeyFor(c.ProductType, c.Fields())
	return c
}

// FromDraft собирает комбинацию из черновика. Пустое имя заменяется автоматическим.
func FromDraft(d domain.CombinationDraft, colorName string) domain.Combination {
	c := Normalize(domain.Combination{
		ProductType: d.ProductType,
		ColorID:     d.ColorID,
		Variant:     domain.KeyFor(d.ProductType, d.Variant),
		ImageRef:    d.ImageRef,
		DisplayName: strings.TrimSpace(d.DisplayName),
	})
	if c.DisplayName == "" {
		c.DisplayName = DisplayName(c, colorName)
	}
	return c
}

// DisplayName строит название вида «Süprem - Beyaz - Kısa Kol - Bisiklet Yaka».
func DisplayName(c domain.Combination, colorName string) string {
	parts := []string{c.ProductType.Label()}
	if name := strings.TrimSpace(colorName); name != "" {
		parts = append(parts, name)
	}
	switch key := c.Variant.(type) {
	case domain.SleeveCollarKey:
		if key.Sleeve != "" {
			parts = append(parts, key.Sleeve.Label())
		}
		if key.Collar != "" {
			parts = append(parts, key.Collar.Label())
		}
	case domain.ThreadKey:
		if key.ThreadModel != "" {
			parts = append(parts, key.ThreadModel)
		}
	case domain.FleeceKey:
		if key.FleeceModel != "" {
			parts = append(parts, key.FleeceModel)
		}
	}
	return strings.Join(parts, " - ")
}

func indexOf(list []domain.Combination, key Key) int {
	for i, c := range list {
		if KeyOfCombination(c) == key {
			return i
		}
	}
	return -1
}
