package domain

import "time"

// Combination связывает ключ варианта (тип изделия, цвет, атрибуты) с эталонным изображением.
type Combination struct {
	ID          string
	ProductType ProductType
	ColorID     string
	Variant     VariantKey
	ImageRef    string
	DisplayName string
	CreatedAt   time.Time
}

// Fields возвращает плоские атрибуты варианта.
func (c Combination) Fields() VariantFields {
	return FieldsOf(c.Variant)
}

// CombinationDraft — входные данные для сохранения комбинации.
type CombinationDraft struct {
	ProductType ProductType `validate:"required"`
	ColorID     string      `validate:"required"`
	Variant     VariantFields
	DisplayName string
	ImageRef    string
}

// MediaFile — бинарное содержимое изображения комбинации.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Empty сообщает, что файл не содержит данных.
func (m *MediaFile) Empty() bool {
	return m == nil || len(m.Data) == 0
}
