package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/path"
	"github.com/roach88/nestq/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %q %v\n", event.Seq, event.Type, event.Path, event.Payload)
		}
	}

	return buf.String()
}

// assertLength checks the length of the sequence at assertion.Path, or of
// the final state when the path is empty.
func assertLength(state []record.Record, assertion Assertion) error {
	var n int
	if assertion.Path == "" {
		n = len(state)
	} else {
		v, ok := lookup(state, assertion.Path)
		if !ok {
			return &AssertionError{
				Type:     AssertLength,
				Expected: fmt.Sprintf("sequence at %q", assertion.Path),
				Actual:   "no value",
			}
		}
		switch seq := v.(type) {
		case []any:
			n = len(seq)
		case []map[string]any:
			n = len(seq)
		default:
			return &AssertionError{
				Type:     AssertLength,
				Expected: fmt.Sprintf("sequence at %q", assertion.Path),
				Actual:   fmt.Sprintf("%T", v),
			}
		}
	}

	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertLength,
			Expected: fmt.Sprintf("%d elements", assertion.Count),
			Actual:   fmt.Sprintf("%d elements", n),
		}
	}
	return nil
}

// assertValueAt checks the value at assertion.Path with numeric kinds unified.
func assertValueAt(state []record.Record, assertion Assertion) error {
	v, ok := lookup(state, assertion.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertValueAt,
			Expected: fmt.Sprintf("%q = %v", assertion.Path, assertion.Value),
			Actual:   "no value",
		}
	}
	if !record.Equal(v, assertion.Value) {
		return &AssertionError{
			Type:     AssertValueAt,
			Expected: fmt.Sprintf("%q = %v (type %T)", assertion.Path, assertion.Value, assertion.Value),
			Actual:   fmt.Sprintf("%q = %v (type %T)", assertion.Path, v, v),
		}
	}
	return nil
}

// assertTraceCount checks how many applied actions have the given type.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.Action == "" || event.Type == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		what := assertion.Action
		if what == "" {
			what = "any action"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func lookup(state []record.Record, p string) (any, bool) {
	return path.Get(state, p)
}

func assertCount(kind string, want, got int) error {
	if want != got {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%d", want),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// h supplies the adapter and buffer for saves, buffer_len and dirty.
func EvaluateAssertions(result *Result, assertions []Assertion, h *Harness) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLength:
			err = assertLength(result.State, assertion)
		case AssertValueAt:
			err = assertValueAt(result.State, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertSaves, AssertBufferLen, AssertDirty:
			if h == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a harness", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertSaves:
				err = assertCount(AssertSaves, assertion.Count, h.adapter.Saves())
			case AssertBufferLen:
				err = assertCount(AssertBufferLen, assertion.Count, h.buffer.Len())
			default:
				want, _ := assertion.Value.(bool)
				if got := h.buffer.HasChanges(assertion.ID); got != want {
					err = &AssertionError{
						Type:     AssertDirty,
						Expected: fmt.Sprintf("%s dirty=%t", assertion.ID, want),
						Actual:   fmt.Sprintf("dirty=%t", got),
					}
				}
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
