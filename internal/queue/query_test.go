package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/record"
)

func directory() []record.Record {
	return []record.Record{
		{"id": 1, "name": "Ana Lima", "team": "core", "staff": []any{
			map[string]any{"id": "s1", "name": "Zed"},
			map[string]any{"id": "s2", "name": "ana"},
		}},
		{"id": 2, "name": "Bo", "team": "edge"},
		{"id": 3, "name": "Cy", "team": "core"},
	}
}

func ids(rs []record.Record) []any {
	out := make([]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, r["id"])
	}
	return out
}

func TestFilter(t *testing.T) {
	s := newTestStore(t, directory())

	core := s.Filter(func(r record.Record) bool { return r["team"] == "core" }, FilterOptions{})
	assert.Equal(t, []any{1, 3}, ids(core))

	zed := s.Filter(func(r record.Record) bool { return r["name"] == "Zed" }, FilterOptions{})
	assert.Empty(t, zed)

	zed = s.Filter(func(r record.Record) bool { return r["name"] == "Zed" }, FilterOptions{Deep: true})
	assert.Equal(t, []any{"s1"}, ids(zed))
}

func TestFilter_MaxDepth(t *testing.T) {
	s := newTestStore(t, directory())

	// staff elements sit two levels below the record (field, then index).
	named := func(r record.Record) bool { return r["name"] == "Zed" }
	assert.Empty(t, s.Filter(named, FilterOptions{Deep: true, MaxDepth: 1}))
	assert.Len(t, s.Filter(named, FilterOptions{Deep: true, MaxDepth: 2}), 1)
}

func TestFilter_ReturnsCopies(t *testing.T) {
	s := newTestStore(t, directory())

	out := s.Filter(func(record.Record) bool { return true }, FilterOptions{})
	out[0]["name"] = "changed"

	v, _ := s.Get("0.name")
	assert.Equal(t, "Ana Lima", v)
}

func TestFindOne(t *testing.T) {
	s := newTestStore(t, directory())

	r, ok := s.FindOne(func(r record.Record) bool { return r["team"] == "core" })
	require.True(t, ok)
	assert.Equal(t, 1, r["id"])

	_, ok = s.FindOne(func(r record.Record) bool { return r["team"] == "ops" })
	assert.False(t, ok)
}

func TestSearch_String(t *testing.T) {
	s := newTestStore(t, directory())

	tests := []struct {
		name  string
		query string
		opts  SearchOptions
		want  []any
	}{
		{"substring case-insensitive", "ana", SearchOptions{}, []any{1}},
		{"deep", "ana", SearchOptions{Deep: true}, []any{1, "s2"}},
		{"case-sensitive", "ana", SearchOptions{CaseSensitive: true}, []any{}},
		{"exact", "ana lima", SearchOptions{Exact: true}, []any{1}},
		{"exact misses substring", "ana", SearchOptions{Exact: true}, []any{}},
		{"numbers are searchable", "2", SearchOptions{}, []any{2}},
		{"restricted paths", "core", SearchOptions{Paths: []string{"name"}}, []any{}},
		{"first only", "core", SearchOptions{First: true}, []any{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.Search(tt.query, tt.opts)))
		})
	}
}

func TestSearch_Criteria(t *testing.T) {
	s := newTestStore(t, directory())

	got := s.Search(record.Record{"team": "core"}, SearchOptions{Exact: true})
	assert.Equal(t, []any{1, 3}, ids(got))

	got = s.Search(record.Record{"team": "CORE", "id": 3}, SearchOptions{Exact: true})
	assert.Equal(t, []any{3}, ids(got))

	got = s.Search(record.Record{"team": "edge", "name": "Cy"}, SearchOptions{Exact: true, Partial: true})
	assert.Equal(t, []any{2, 3}, ids(got))

	got = s.Search(record.Record{"team": "edge", "name": "Cy"}, SearchOptions{Exact: true})
	assert.Empty(t, got)
}

func TestSearch_UnsupportedQuery(t *testing.T) {
	s := newTestStore(t, directory())
	assert.Nil(t, s.Search(42, SearchOptions{}))
	assert.Nil(t, s.Search(record.Record{}, SearchOptions{}))
}

func TestFindPaths(t *testing.T) {
	s := newTestStore(t, directory())

	assert.Equal(t, []string{"0.staff.1"}, s.FindPaths(record.Record{"id": "s2"}, SearchOptions{Exact: true}))
	assert.Equal(t, []string{"0", "2"}, s.FindPaths(record.Record{"team": "core"}, SearchOptions{Exact: true}))
	assert.Equal(t, []string{"0"}, s.FindPaths(record.Record{"team": "core"}, SearchOptions{Exact: true, First: true}))
	assert.Nil(t, s.FindPaths(nil, SearchOptions{}))

	// Paths round-trip through Get.
	v, ok := s.Get("0.staff.1.name")
	require.True(t, ok)
	assert.Equal(t, "ana", v)
}

func TestIndexOf(t *testing.T) {
	s := newTestStore(t, []record.Record{{"id": "a"}, {"key": 7}, {"id": 3}})

	p, ok := s.IndexOf("3")
	require.True(t, ok)
	assert.Equal(t, "2", p)

	p, ok = s.IndexOf("7")
	require.True(t, ok)
	assert.Equal(t, "1", p)

	_, ok = s.IndexOf("missing")
	assert.False(t, ok)
}
