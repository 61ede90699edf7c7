package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Record is an application-defined structured value.
// The only convention is an identifier in the "id" or "key" field.
type Record = map[string]any

// ErrMissingID is returned when a record has neither an "id" nor a "key" field.
var ErrMissingID = errors.New("record must have an id or key field")

// IDOf extracts the identifier of a record.
// Lookup order is "id" first, then "key". A field holding nil counts as absent.
func IDOf(r Record) (string, error) {
	if v, ok := r["id"]; ok && v != nil {
		return FormatID(v), nil
	}
	if v, ok := r["key"]; ok && v != nil {
		return FormatID(v), nil
	}
	return "", ErrMissingID
}

// FormatID renders an identifier value as the string used for buffer keys and
// store paths. Numbers are rendered without exponent so that 2 and 2.0 agree.
func FormatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(id), 'f', -1, 32)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	default:
		return fmt.Sprint(v)
	}
}

// HasID reports whether IDOf would succeed for r.
func HasID(r Record) bool {
	_, err := IDOf(r)
	return err == nil
}
