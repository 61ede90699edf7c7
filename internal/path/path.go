// Package path resolves and mutates values inside nested mappings and
// sequences using dotted paths such as "0.employees.1" or "user.contacts[0].email".
//
// Supported containers are map[string]any, []any and []map[string]any.
// Numeric segments index sequences; every other segment is a mapping key.
package path

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/nestq/internal/record"
)

var (
	bracketSegment = regexp.MustCompile(`\[(\w+)\]`)
	emptyBracket   = regexp.MustCompile(`\[\s*\]`)
)

// Parse splits a path into segments. Brackets are rewritten to dots
// ("a[0].b" -> ["a" "0" "b"]) and empty segments are dropped.
// Paths containing ".." or empty brackets are invalid.
func Parse(p string) ([]string, bool) {
	if p == "" || strings.Contains(p, "..") || emptyBracket.MatchString(p) {
		return nil, false
	}

	p = bracketSegment.ReplaceAllString(p, ".$1")

	var segs []string
	for _, s := range strings.Split(p, ".") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return nil, false
	}
	return segs, true
}

// Join builds a dotted path from segments.
func Join(segs ...string) string {
	return strings.Join(segs, ".")
}

// Get returns the value at p. The second result is false when any step is
// missing or not indexable, or when p is empty or invalid. Get never panics.
func Get(container any, p string) (any, bool) {
	segs, ok := Parse(p)
	if !ok {
		return nil, false
	}
	return Lookup(container, segs)
}

// Lookup is Get for pre-parsed segments. Zero segments return the container.
func Lookup(container any, segs []string) (any, bool) {
	cur := container
	for _, seg := range segs {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Set assigns value at p in place and returns the container, which is a new
// value only when the container itself had to be created or grown
// (nil container, append to a root sequence).
//
// Every segment except the last is walked; an absent mapping key gets a new
// empty map. Numeric final segments are not turned into sequences: callers
// that need sequence semantics must create the sequence first. A path that
// runs into a scalar, or indexes past the end of a sequence, leaves the
// container unchanged. An empty path is a no-op.
func Set(container any, p string, value any) any {
	segs, ok := Parse(p)
	if !ok {
		return container
	}
	out, _ := put(container, segs, value, false, true)
	return out
}

// Replace is the copy-on-write form of Set used by the store. It returns a
// new root in which every container along segs is a shallow copy and the
// final slot holds value. Containers off the path are shared with the input;
// the input is never modified. Missing intermediates are not created.
func Replace(container any, segs []string, value any) (any, bool) {
	if len(segs) == 0 {
		return value, true
	}
	return put(container, segs, value, true, false)
}

func put(c any, segs []string, value any, cow, create bool) (any, bool) {
	if c == nil && create {
		c = map[string]any{}
	}

	if len(segs) == 1 {
		return assign(c, segs[0], value, cow)
	}

	next, ok := child(c, segs[0])
	if !ok || next == nil {
		if _, isMap := c.(map[string]any); !create || !isMap {
			return c, false
		}
		next = map[string]any{}
	}

	updated, ok := put(next, segs[1:], value, cow, create)
	if !ok {
		return c, false
	}
	return assign(c, segs[0], updated, cow)
}

// assign stores value under seg in c. With cow the container is copied first.
func assign(c any, seg string, value any, cow bool) (any, bool) {
	switch v := c.(type) {
	case map[string]any:
		if cow {
			v = record.Merge(v, nil)
		}
		v[seg] = value
		return v, true

	case []any:
		i, ok := index(seg, len(v)+1)
		if !ok {
			return c, false
		}
		if cow {
			v = append(make([]any, 0, len(v)+1), v...)
		}
		if i == len(v) {
			return append(v, value), true
		}
		v[i] = value
		return v, true

	case []map[string]any:
		m, isMap := value.(map[string]any)
		if !isMap {
			return c, false
		}
		i, ok := index(seg, len(v)+1)
		if !ok {
			return c, false
		}
		if cow {
			v = append(make([]map[string]any, 0, len(v)+1), v...)
		}
		if i == len(v) {
			return append(v, m), true
		}
		v[i] = m
		return v, true
	}
	return c, false
}

func child(c any, seg string) (any, bool) {
	switch v := c.(type) {
	case map[string]any:
		val, ok := v[seg]
		return val, ok
	case []any:
		i, ok := index(seg, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true
	case []map[string]any:
		i, ok := index(seg, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true
	}
	return nil, false
}

// Index parses seg as a sequence index below n. Signs and non-digits fail.
func Index(seg string, n int) (int, bool) {
	return index(seg, n)
}

func index(seg string, n int) (int, bool) {
	if seg == "" || seg[0] < '0' || seg[0] > '9' {
		return 0, false
	}
	i, err := strconv.Atoi(seg)
	if err != nil || i >= n {
		return 0, false
	}
	return i, true
}

// IsSequence reports whether v is a sequence container.
func IsSequence(v any) bool {
	switch v.(type) {
	case []any, []map[string]any:
		return true
	}
	return false
}
