package queue

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/nestq/internal/path"
	"github.com/roach88/nestq/internal/record"
)

// FilterOptions controls Filter.
type FilterOptions struct {
	// Deep also visits mappings nested inside records.
	Deep bool

	// MaxDepth bounds Deep. Top-level records are depth 0. Zero or negative
	// is unbounded.
	MaxDepth int
}

// SearchOptions controls Search and FindPaths.
type SearchOptions struct {
	// Exact requires string values to be equal instead of containing the query.
	Exact bool

	// CaseSensitive disables case folding for strings.
	CaseSensitive bool

	// Deep also visits mappings nested inside records.
	Deep bool

	// MaxDepth bounds Deep. Zero or negative is unbounded.
	MaxDepth int

	// Paths restricts a string query to the values at these paths.
	// Empty means every scalar field of the mapping.
	Paths []string

	// Partial lets a criteria query match when any key matches.
	Partial bool

	// First stops at the first match.
	First bool
}

// Filter returns deep copies of the records for which pred is true.
func (s *Store) Filter(pred func(record.Record) bool, opts FilterOptions) []record.Record {
	var out []record.Record
	walk(s.snapshot(), opts.Deep, opts.MaxDepth, func(_ string, r record.Record) bool {
		if pred(r) {
			out = append(out, record.CloneRecord(r))
		}
		return true
	})
	return out
}

// FindOne returns a deep copy of the first top-level record for which pred
// is true.
func (s *Store) FindOne(pred func(record.Record) bool) (record.Record, bool) {
	for _, r := range s.snapshot() {
		if pred(r) {
			return record.CloneRecord(r), true
		}
	}
	return nil, false
}

// Search returns deep copies of the records matching query.
//
// A string query matches a record when any candidate value contains it
// (equals it with Exact). A record query is a set of criteria keyed by path;
// every criterion must match unless Partial is set. Any other query type
// matches nothing.
func (s *Store) Search(query any, opts SearchOptions) []record.Record {
	match := matcherFor(query, opts)
	if match == nil {
		return nil
	}

	var out []record.Record
	walk(s.snapshot(), opts.Deep, opts.MaxDepth, func(_ string, r record.Record) bool {
		if match(r) {
			out = append(out, record.CloneRecord(r))
			return !opts.First
		}
		return true
	})
	return out
}

// FindPaths returns the store paths ("0", "0.employees.1") of every mapping
// matching criteria, visiting nested mappings regardless of opts.Deep.
// The paths can be passed to Get, Update and Remove.
func (s *Store) FindPaths(criteria record.Record, opts SearchOptions) []string {
	if len(criteria) == 0 {
		return nil
	}
	match := matcherFor(criteria, opts)

	var out []string
	walk(s.snapshot(), true, opts.MaxDepth, func(p string, r record.Record) bool {
		if match(r) {
			out = append(out, p)
			return !opts.First
		}
		return true
	})
	return out
}

// IndexOf returns the path of the top-level record whose identifier is id.
func (s *Store) IndexOf(id string) (string, bool) {
	for i, r := range s.snapshot() {
		if rid, err := record.IDOf(r); err == nil && rid == id {
			return strconv.Itoa(i), true
		}
	}
	return "", false
}

// walk visits top-level records in order and, when deep, every mapping
// nested below them (pre-order, map keys sorted). fn returns false to stop.
func walk(state []record.Record, deep bool, maxDepth int, fn func(p string, r record.Record) bool) {
	var visit func(v any, p string, depth int) bool
	visit = func(v any, p string, depth int) bool {
		if maxDepth > 0 && depth > maxDepth {
			return true
		}

		switch val := v.(type) {
		case map[string]any:
			if !fn(p, val) {
				return false
			}
			if !deep {
				return true
			}
			for _, k := range sortedKeys(val) {
				if !visit(val[k], path.Join(p, k), depth+1) {
					return false
				}
			}
		case []any:
			for i, elem := range val {
				if !visit(elem, path.Join(p, strconv.Itoa(i)), depth+1) {
					return false
				}
			}
		case []map[string]any:
			for i, elem := range val {
				if !visit(elem, path.Join(p, strconv.Itoa(i)), depth+1) {
					return false
				}
			}
		}
		return true
	}

	for i, r := range state {
		if !visit(r, strconv.Itoa(i), 0) {
			return
		}
	}
}

func matcherFor(query any, opts SearchOptions) func(record.Record) bool {
	switch q := query.(type) {
	case string:
		return func(r record.Record) bool {
			for _, v := range candidates(r, opts.Paths) {
				if stringMatches(record.Stringify(v), q, opts) {
					return true
				}
			}
			return false
		}
	case map[string]any:
		if len(q) == 0 {
			return nil
		}
		return func(r record.Record) bool {
			hits := 0
			for k, want := range q {
				got, ok := path.Get(r, k)
				if ok && valueMatches(got, want, opts) {
					hits++
				} else if !opts.Partial {
					return false
				}
			}
			return hits > 0
		}
	}
	return nil
}

// candidates returns the scalar values a string query is tested against.
func candidates(r record.Record, paths []string) []any {
	var out []any
	if len(paths) > 0 {
		for _, p := range paths {
			if v, ok := path.Get(r, p); ok && isScalar(v) {
				out = append(out, v)
			}
		}
		return out
	}
	for _, k := range sortedKeys(r) {
		if v := r[k]; isScalar(v) {
			out = append(out, v)
		}
	}
	return out
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, map[string]any, []any, []map[string]any:
		return false
	}
	return true
}

func valueMatches(got, want any, opts SearchOptions) bool {
	gs, gok := got.(string)
	ws, wok := want.(string)
	if gok && wok {
		return stringMatches(gs, ws, opts)
	}
	if opts.CaseSensitive {
		return record.Equal(got, want)
	}
	return record.EqualFold(got, want)
}

func stringMatches(value, query string, opts SearchOptions) bool {
	if !opts.CaseSensitive {
		value = strings.ToLower(value)
		query = strings.ToLower(query)
	}
	if opts.Exact {
		return value == query
	}
	return strings.Contains(value, query)
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
