package domain

import "time"

// Customer — заказчик мастерской. Rank задаёт ручной порядок отображения.
type Customer struct {
	ID        string
	Name      string
	Rank      int
	CreatedAt time.Time
}

// RankID возвращает идентификатор для ранжирования.
func (c Customer) RankID() string { return c.ID }

// RankValue возвращает текущую позицию в списке.
func (c Customer) RankValue() int { return c.Rank }

// WithRank возвращает копию с новой позицией.
func (c Customer) WithRank(rank int) Customer {
	c.Rank = rank
	return c
}

// Color — цвет ткани. Code хранит HEX-код для отображения.
type Color struct {
	ID        string
	Name      string
	Code      string
	Rank      int
	CreatedAt time.Time
}

// RankID возвращает идентификатор для ранжирования.
func (c Color) RankID() string { return c.ID }

// RankValue возвращает текущую позицию в списке.
func (c Color) RankValue() int { return c.Rank }

// WithRank возвращает копию с новой позицией.
func (c Color) WithRank(rank int) Color {
	c.Rank = rank
	return c
}

// RankEntry — элемент пакетного обновления порядка.
type RankEntry struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}
