package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDOf(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"int id", Record{"id": 1}, "1"},
		{"int64 id", Record{"id": int64(42)}, "42"},
		{"float id", Record{"id": 2.0}, "2"},
		{"fractional id", Record{"id": 2.5}, "2.5"},
		{"string id", Record{"id": "abc"}, "abc"},
		{"json number", Record{"id": json.Number("7")}, "7"},
		{"key fallback", Record{"key": "k1"}, "k1"},
		{"id wins over key", Record{"id": 3, "key": "k"}, "3"},
		{"nil id falls back to key", Record{"id": nil, "key": "k"}, "k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IDOf(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDOf_Missing(t *testing.T) {
	_, err := IDOf(Record{"name": "no id"})
	assert.ErrorIs(t, err, ErrMissingID)
	assert.False(t, HasID(Record{}))
	assert.True(t, HasID(Record{"key": 0}))
}

func TestActionType_Valid(t *testing.T) {
	for _, at := range ValidActionTypes {
		assert.True(t, at.Valid(), "%s should be valid", at)
	}
	assert.False(t, ActionType("upsert").Valid())
}

func TestClone_IsDeep(t *testing.T) {
	orig := Record{
		"id":    1,
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"n": 1},
		"rows":  []map[string]any{{"x": 1}},
	}

	c := CloneRecord(orig)
	c["tags"].([]any)[0] = "z"
	c["inner"].(map[string]any)["n"] = 2
	c["rows"].([]map[string]any)[0]["x"] = 9

	assert.Equal(t, "a", orig["tags"].([]any)[0])
	assert.Equal(t, 1, orig["inner"].(map[string]any)["n"])
	assert.Equal(t, 1, orig["rows"].([]map[string]any)[0]["x"])
	assert.Nil(t, CloneRecord(nil))
	assert.Nil(t, CloneState(nil))
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	base := Record{"a": 1, "b": 2}
	changes := Record{"b": 3, "c": 4}

	got := Merge(base, changes)

	assert.Equal(t, Record{"a": 1, "b": 3, "c": 4}, got)
	assert.Equal(t, Record{"a": 1, "b": 2}, base)
	assert.Equal(t, Record{"b": 3, "c": 4}, changes)
}
