package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hexID string

func (h hexID) Hex() string { return string(h) }

func TestCanonicalID(t *testing.T) {
	raw := "c1"

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "plain string", in: " c1 ", want: "c1"},
		{name: "string pointer", in: &raw, want: "c1"},
		{name: "nil string pointer", in: (*string)(nil), want: ""},
		{name: "populated object with id", in: map[string]any{"id": "c1", "_id": "other"}, want: "c1"},
		{name: "populated object with _id", in: map[string]any{"_id": "c2", "name": "Beyaz"}, want: "c2"},
		{name: "populated object with rawId", in: map[string]any{"rawId": "c3"}, want: "c3"},
		{name: "nested object id", in: map[string]any{"_id": map[string]any{"id": "c4"}}, want: "c4"},
		{name: "object without id", in: map[string]any{"name": "Beyaz"}, want: ""},
		{name: "hex identifier", in: hexID("65f1c0ffee"), want: "65f1c0ffee"},
		{name: "number coerced", in: 42, want: "42"},
		{name: "raw json object", in: json.RawMessage(`{"id":"c5"}`), want: "c5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalID(tt.in))
		})
	}
}

func TestIDRefUnmarshal(t *testing.T) {
	var payload struct {
		ColorID    IDRef `json:"colorId"`
		CustomerID IDRef `json:"customerId"`
	}

	err := json.Unmarshal([]byte(`{"colorId":{"_id":"c1","name":"Beyaz"},"customerId":"m1"}`), &payload)
	require.NoError(t, err)

	assert.Equal(t, "c1", payload.ColorID.String())
	assert.Equal(t, "m1", payload.CustomerID.String())
}
