package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// canonicalIDKeys — поля, в которых «развёрнутая» ссылка может хранить идентификатор, в порядке приоритета.
var canonicalIDKeys = []string{"id", "_id", "rawId"}

// CanonicalID приводит ссылку на сущность к строковому идентификатору.
// Хранилище может вернуть как «сырой» идентификатор, так и заполненный (populated) документ;
// порядок разбора: поле id объекта, затем _id/rawId или ObjectID, затем строковое представление значения.
func CanonicalID(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case *string:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(*v)
	case map[string]any:
		for _, key := range canonicalIDKeys {
			if nested, ok := v[key]; ok {
				if id := CanonicalID(nested); id != "" {
					return id
				}
			}
		}
		return ""
	case interface{ Hex() string }:
		return v.Hex()
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return strings.TrimSpace(string(v))
		}
		return CanonicalID(decoded)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// IDRef — идентификатор, принимающий в JSON как строку, так и объект со ссылкой.
type IDRef string

// UnmarshalJSON нормализует ссылку через CanonicalID.
func (r *IDRef) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode id reference: %w", err)
	}
	*r = IDRef(CanonicalID(raw))
	return nil
}

// String возвращает канонический идентификатор.
func (r IDRef) String() string { return string(r) }
