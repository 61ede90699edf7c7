package queue

import (
	"slices"

	"github.com/roach88/nestq/internal/path"
	"github.com/roach88/nestq/internal/record"
)

// mutate applies action to state and returns the next state.
//
// state is never modified. Every container along the touched path is copied;
// everything else is shared with state. changed=false means the target did
// not resolve to the expected container and nothing happened.
func mutate(state []record.Record, action record.Action) ([]record.Record, bool, error) {
	switch action.Type {
	case record.ActionAdd:
		return addItem(state, action.Payload, action.Path)
	case record.ActionRemove:
		return removeAt(state, action.Path)
	case record.ActionUpdate:
		changes, ok := action.Payload.(map[string]any)
		if !ok {
			return state, false, ErrNotRecord
		}
		return updateAt(state, action.Path, changes)
	case record.ActionSort:
		payload, ok := action.Payload.(record.SortPayload)
		if !ok {
			return state, false, ErrBadPayload
		}
		return sortAt(state, payload)
	case record.ActionClear:
		return []record.Record{}, true, nil
	}
	return state, false, ErrUnknownAction
}

func addItem(state []record.Record, item any, p string) ([]record.Record, bool, error) {
	if p == "" {
		r, ok := item.(map[string]any)
		if !ok {
			return state, false, ErrNotRecord
		}
		next := make([]record.Record, len(state), len(state)+1)
		copy(next, state)
		return append(next, r), true, nil
	}

	segs, ok := path.Parse(p)
	if !ok {
		return state, false, nil
	}
	target, _ := path.Lookup(state, segs)

	var grown any
	switch seq := target.(type) {
	case []any:
		grown = append(slices.Clone(seq), item)
	case []map[string]any:
		m, ok := item.(map[string]any)
		if !ok {
			return state, false, nil
		}
		grown = append(slices.Clone(seq), m)
	default:
		return state, false, nil
	}
	return replaceAt(state, segs, grown)
}

func removeAt(state []record.Record, p string) ([]record.Record, bool, error) {
	segs, ok := path.Parse(p)
	if !ok {
		return state, false, nil
	}
	parentSegs, last := segs[:len(segs)-1], segs[len(segs)-1]

	parent, ok := path.Lookup(state, parentSegs)
	if !ok {
		return state, false, nil
	}

	var shrunk any
	switch seq := parent.(type) {
	case []any:
		i, ok := path.Index(last, len(seq))
		if !ok {
			return state, false, nil
		}
		shrunk = slices.Delete(slices.Clone(seq), i, i+1)
	case []map[string]any:
		i, ok := path.Index(last, len(seq))
		if !ok {
			return state, false, nil
		}
		shrunk = slices.Delete(slices.Clone(seq), i, i+1)
	default:
		return state, false, nil
	}
	return replaceAt(state, parentSegs, shrunk)
}

func updateAt(state []record.Record, p string, changes record.Record) ([]record.Record, bool, error) {
	segs, ok := path.Parse(p)
	if !ok {
		return state, false, nil
	}
	target, _ := path.Lookup(state, segs)
	m, ok := target.(map[string]any)
	if !ok || m == nil {
		return state, false, nil
	}
	return replaceAt(state, segs, record.Merge(m, changes))
}

func sortAt(state []record.Record, payload record.SortPayload) ([]record.Record, bool, error) {
	opts := payload.Options
	compare := opts.Compare
	if compare == nil {
		c := record.NewComparator(opts.Direction)
		key := payload.Key
		compare = func(a, b any) int {
			av, _ := path.Get(a, key)
			bv, _ := path.Get(b, key)
			return c.Compare(av, bv)
		}
	}
	s := sorter{compare: compare, shallow: opts.Shallow, maxDepth: opts.MaxDepth}

	if opts.Path == "" {
		sorted, _ := s.sequence(state, 0)
		return sorted.([]record.Record), true, nil
	}

	segs, ok := path.Parse(opts.Path)
	if !ok {
		return state, false, nil
	}
	target, _ := path.Lookup(state, segs)
	sorted, ok := s.sequence(target, 0)
	if !ok {
		return state, false, nil
	}
	return replaceAt(state, segs, sorted)
}

// sorter stable-sorts a sequence and, unless shallow, every sequence-valued
// field of its mapping elements, down to maxDepth (<= 0 is unbounded).
type sorter struct {
	compare  func(a, b any) int
	shallow  bool
	maxDepth int
}

func (s sorter) sequence(v any, depth int) (any, bool) {
	descend := !s.shallow && (s.maxDepth <= 0 || depth < s.maxDepth)

	switch seq := v.(type) {
	case []any:
		out := slices.Clone(seq)
		slices.SortStableFunc(out, s.compare)
		if descend {
			for i, elem := range out {
				out[i] = s.fields(elem, depth)
			}
		}
		return out, true

	case []map[string]any:
		out := slices.Clone(seq)
		slices.SortStableFunc(out, func(a, b map[string]any) int {
			return s.compare(a, b)
		})
		if descend {
			for i, elem := range out {
				out[i] = s.fields(elem, depth).(map[string]any)
			}
		}
		return out, true
	}
	return v, false
}

// fields returns elem with its sequence-valued fields sorted. A mapping is
// copied only when at least one field changes.
func (s sorter) fields(elem any, depth int) any {
	m, ok := elem.(map[string]any)
	if !ok {
		return elem
	}

	var copied map[string]any
	for k, v := range m {
		if !path.IsSequence(v) {
			continue
		}
		sorted, _ := s.sequence(v, depth+1)
		if copied == nil {
			copied = record.Merge(m, nil)
		}
		copied[k] = sorted
	}

	if copied == nil {
		return m
	}
	return copied
}

// replaceAt swaps the container at segs for value, copying every container on
// the way down.
func replaceAt(state []record.Record, segs []string, value any) ([]record.Record, bool, error) {
	out, ok := path.Replace(state, segs, value)
	if !ok {
		return state, false, nil
	}
	next, ok := out.([]record.Record)
	if !ok {
		return state, false, nil
	}
	return next, true, nil
}
