package record

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type valueKind int

const (
	kindNil valueKind = iota
	kindString
	kindNumber
	kindBool
	kindOther
)

// Comparator orders field values for sorting.
//
// Strings are compared with a root-locale collator so that ordering follows
// human expectations rather than byte order. A Comparator is NOT safe for
// concurrent use: the collator keeps internal buffers. Create one per sort.
type Comparator struct {
	dir      Direction
	collator *collate.Collator
}

// NewComparator creates a comparator for the given direction.
// An empty direction means Asc.
func NewComparator(dir Direction) *Comparator {
	if dir == "" {
		dir = Asc
	}
	return &Comparator{
		dir:      dir,
		collator: collate.New(language.Und),
	}
}

// Compare returns a negative number when a sorts before b, positive when
// after, zero when equal.
//
// Rules:
//   - nil sorts first in Asc and last in Desc
//   - operands of different kinds are compared by their string forms
//   - strings use collation, numbers compare numerically, false < true
//   - anything else compares by string form
func (c *Comparator) Compare(a, b any) int {
	ka, kb := kindOf(a), kindOf(b)

	if ka == kindNil && kb == kindNil {
		return 0
	}
	if ka == kindNil {
		return c.directed(-1)
	}
	if kb == kindNil {
		return c.directed(1)
	}

	if ka != kb || ka == kindOther {
		return c.directed(c.collator.CompareString(Stringify(a), Stringify(b)))
	}

	switch ka {
	case kindString:
		return c.directed(c.collator.CompareString(a.(string), b.(string)))
	case kindNumber:
		fa, _ := Number(a)
		fb, _ := Number(b)
		return c.directed(cmp.Compare(fa, fb))
	case kindBool:
		return c.directed(cmp.Compare(boolRank(a.(bool)), boolRank(b.(bool))))
	}
	return 0
}

func (c *Comparator) directed(n int) int {
	if c.dir == Desc {
		return -n
	}
	return n
}

// CompareValues compares a and b with a fresh comparator.
// Prefer NewComparator when comparing many values.
func CompareValues(a, b any, dir Direction) int {
	return NewComparator(dir).Compare(a, b)
}

// Number converts any Go numeric kind or json.Number to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Stringify renders a value the way a comparison of mixed kinds sees it.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}
	if f, ok := Number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Equal reports whether two values are equal, treating every numeric kind
// as the same kind (1 == int64(1) == 1.0).
func Equal(a, b any) bool {
	return equalValues(a, b, false)
}

// EqualFold is Equal with case-insensitive string comparison.
func EqualFold(a, b any) bool {
	return equalValues(a, b, true)
}

func equalValues(a, b any, fold bool) bool {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case kindNil:
		return true
	case kindString:
		if fold {
			return strings.EqualFold(a.(string), b.(string))
		}
		return a.(string) == b.(string)
	case kindNumber:
		fa, _ := Number(a)
		fb, _ := Number(b)
		return fa == fb
	case kindBool:
		return a.(bool) == b.(bool)
	}

	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, v := range va {
			w, ok := vb[k]
			if !ok || !equalValues(v, w, fold) {
				return false
			}
		}
		return true
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !equalValues(va[i], vb[i], fold) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNil
	case string:
		return kindString
	case bool:
		return kindBool
	}
	if _, ok := Number(v); ok {
		return kindNumber
	}
	return kindOther
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
