package record

// Clone returns a deep copy of mappings and sequences.
// Scalars and unknown types are returned as is.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneRecord(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, elem := range val {
			out[i] = CloneRecord(elem)
		}
		return out
	default:
		return v
	}
}

// CloneRecord returns a deep copy of r. A nil record clones to nil.
func CloneRecord(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = Clone(v)
	}
	return out
}

// CloneState deep-copies a sequence of records.
func CloneState(state []Record) []Record {
	if state == nil {
		return nil
	}
	out := make([]Record, len(state))
	for i, r := range state {
		out[i] = CloneRecord(r)
	}
	return out
}

// Merge shallow-merges changes over base into a new record.
// Neither argument is modified.
func Merge(base, changes Record) Record {
	out := make(Record, len(base)+len(changes))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range changes {
		out[k] = v
	}
	return out
}
