package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nestq/internal/record"
)

// Scenario is a scripted run against a fresh store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial seeds the store before the first step.
	Initial []map[string]any `yaml:"initial,omitempty"`

	// Buffer configures the write-behind buffer used by buffer steps.
	Buffer *BufferOptions `yaml:"buffer,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// BufferOptions configures the scenario buffer.
type BufferOptions struct {
	// Size is the buffer size. Zero keeps the default.
	Size int `yaml:"size,omitempty"`

	// Locator is "position" (default) or "identifier".
	Locator string `yaml:"locator,omitempty"`
}

// Step is one operation against the store or the buffer.
type Step struct {
	Op string `yaml:"op"`

	// Path addresses the target of store operations, and the record to load
	// when load has no item.
	Path string `yaml:"path,omitempty"`

	// ID names the buffered record for change, delete and rollback.
	ID string `yaml:"id,omitempty"`

	// Item is the value for add, create and load.
	Item any `yaml:"item,omitempty"`

	// Changes is the partial record for update and change.
	Changes map[string]any `yaml:"changes,omitempty"`

	// Key, Direction, Shallow and MaxDepth configure sort.
	Key       string `yaml:"key,omitempty"`
	Direction string `yaml:"direction,omitempty"`
	Shallow   bool   `yaml:"shallow,omitempty"`
	MaxDepth  int    `yaml:"max_depth,omitempty"`

	// ExpectError inverts the step's outcome: it must fail.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Assertion validates the final state of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is used by value_at and, optionally, length.
	Path string `yaml:"path,omitempty"`

	// Value is the expected value for value_at and dirty.
	Value any `yaml:"value,omitempty"`

	// Count is used by length, saves, trace_count and buffer_len.
	Count int `yaml:"count,omitempty"`

	// Action filters trace_count by action type.
	Action string `yaml:"action,omitempty"`

	// ID names the buffered record for dirty.
	ID string `yaml:"id,omitempty"`
}

// Step operations.
const (
	OpAdd         = "add"
	OpRemove      = "remove"
	OpUpdate      = "update"
	OpSort        = "sort"
	OpClear       = "clear"
	OpLoad        = "load"
	OpCreate      = "create"
	OpChange      = "change"
	OpDelete      = "delete"
	OpFlush       = "flush"
	OpRollback    = "rollback"
	OpRollbackAll = "rollback_all"
)

// Assertion type constants.
const (
	AssertLength     = "length"
	AssertValueAt    = "value_at"
	AssertSaves      = "saves"
	AssertTraceCount = "trace_count"
	AssertBufferLen  = "buffer_len"
	AssertDirty      = "dirty"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Buffer != nil {
		switch s.Buffer.Locator {
		case "", "position", "identifier":
		default:
			return fmt.Errorf("buffer.locator: unknown locator %q", s.Buffer.Locator)
		}
		if s.Buffer.Size < 0 {
			return fmt.Errorf("buffer.size must be non-negative")
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpAdd, OpCreate:
		if st.Item == nil {
			return fmt.Errorf("steps[%d]: item is required for %s", index, st.Op)
		}
	case OpRemove:
		if st.Path == "" {
			return fmt.Errorf("steps[%d]: path is required for remove", index)
		}
	case OpUpdate:
		if st.Changes == nil {
			return fmt.Errorf("steps[%d]: changes is required for update", index)
		}
	case OpSort:
		if st.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for sort", index)
		}
		switch record.Direction(st.Direction) {
		case "", record.Asc, record.Desc:
		default:
			return fmt.Errorf("steps[%d]: unknown direction %q", index, st.Direction)
		}
	case OpLoad:
		if st.Item == nil && st.Path == "" {
			return fmt.Errorf("steps[%d]: load needs an item or a path", index)
		}
	case OpChange:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for change", index)
		}
	case OpDelete, OpRollback:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, st.Op)
		}
	case OpClear, OpFlush, OpRollbackAll:
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLength, AssertSaves, AssertBufferLen:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
		if a.Action != "" && !record.ActionType(a.Action).Valid() {
			return fmt.Errorf("assertions[%d]: unknown action %q", index, a.Action)
		}
	case AssertValueAt:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for value_at", index)
		}
	case AssertDirty:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for dirty", index)
		}
		if _, ok := a.Value.(bool); !ok {
			return fmt.Errorf("assertions[%d]: value must be true or false for dirty", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
