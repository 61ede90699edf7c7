package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/record"
)

func TestRun_NilScenario(t *testing.T) {
	_, err := Run(nil)
	require.Error(t, err)
}

func TestRun_StoreOperations(t *testing.T) {
	scenario := &Scenario{
		Name:        "store_ops",
		Description: "add then update",
		Steps: []Step{
			{Op: OpAdd, Item: map[string]any{"id": "a", "n": 1}},
			{Op: OpUpdate, Path: "0", Changes: map[string]any{"n": 2}},
		},
		Assertions: []Assertion{
			{Type: AssertLength, Count: 1},
			{Type: AssertValueAt, Path: "0.n", Value: 2},
			{Type: AssertSaves, Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []record.Record{{"id": "a", "n": 2}}, result.State)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, TraceEvent{Seq: 1, Type: "add", Payload: map[string]any{"id": "a", "n": 1}}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Type: "update", Path: "0", Payload: map[string]any{"n": 2}}, result.Trace[1])
}

func TestRun_StepItemsAreNotShared(t *testing.T) {
	item := map[string]any{"id": "a", "tags": []any{"x"}}
	scenario := &Scenario{
		Name:        "no_alias",
		Description: "running twice gives the same result",
		Steps:       []Step{{Op: OpAdd, Item: item}, {Op: OpUpdate, Path: "0", Changes: map[string]any{"tags": []any{"y"}}}},
		Assertions:  []Assertion{{Type: AssertValueAt, Path: "0.tags.0", Value: "y"}},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d errors: %v", i, result.Errors)
	}
	assert.Equal(t, []any{"x"}, item["tags"])
}

func TestRun_StepErrorFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_step",
		Description: "update of an unknown buffered id",
		Steps: []Step{
			{Op: OpChange, ID: "nope", Changes: map[string]any{"v": 1}},
		},
		Assertions: []Assertion{{Type: AssertBufferLen, Count: 0}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] change")
	assert.Contains(t, result.Errors[0], "not found")
}

func TestRun_ExpectErrorThatSucceeds(t *testing.T) {
	scenario := &Scenario{
		Name:        "unexpected_success",
		Description: "clear never fails",
		Steps:       []Step{{Op: OpClear, ExpectError: true}},
		Assertions:  []Assertion{{Type: AssertLength, Count: 0}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"steps[0] clear: expected an error"}, result.Errors)
}

func TestRun_RollbackAll(t *testing.T) {
	scenario := &Scenario{
		Name:        "rollback_all",
		Description: "rollback_all restores loaded records and drops new ones",
		Initial:     []map[string]any{{"id": "0", "v": 1}},
		Steps: []Step{
			{Op: OpLoad, Path: "0"},
			{Op: OpChange, ID: "0", Changes: map[string]any{"v": 9}},
			{Op: OpCreate, Item: map[string]any{"id": "new"}},
			{Op: OpRollbackAll},
		},
		Assertions: []Assertion{
			{Type: AssertBufferLen, Count: 1},
			{Type: AssertDirty, ID: "0", Value: false},
			{Type: AssertDirty, ID: "new", Value: false},
			{Type: AssertTraceCount, Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_DeleteBypassesBuffer(t *testing.T) {
	scenario := &Scenario{
		Name:        "delete",
		Description: "delete removes from the store immediately",
		Initial:     []map[string]any{{"id": "0"}, {"id": "1"}},
		Steps: []Step{
			{Op: OpLoad, Path: "0"},
			{Op: OpDelete, ID: "0"},
		},
		Assertions: []Assertion{
			{Type: AssertLength, Count: 1},
			{Type: AssertValueAt, Path: "0.id", Value: "1"},
			{Type: AssertBufferLen, Count: 0},
			{Type: AssertTraceCount, Action: "remove", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_LoadItemAndBadTargets(t *testing.T) {
	scenario := &Scenario{
		Name:        "load_targets",
		Description: "load by item, then by paths that do not hold records",
		Initial:     []map[string]any{{"id": "0", "tags": []any{"x"}}},
		Steps: []Step{
			{Op: OpLoad, Item: map[string]any{"id": "k"}},
			{Op: OpLoad, Path: "9", ExpectError: true},
			{Op: OpLoad, Path: "0.tags", ExpectError: true},
			{Op: OpCreate, Item: "scalar", ExpectError: true},
		},
		Assertions: []Assertion{{Type: AssertBufferLen, Count: 1}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "every assertion is wrong",
		Initial:     []map[string]any{{"id": "0", "v": 1}},
		Steps:       []Step{{Op: OpFlush}},
		Assertions: []Assertion{
			{Type: AssertLength, Count: 2},
			{Type: AssertValueAt, Path: "0.v", Value: 2},
			{Type: AssertValueAt, Path: "7.v", Value: 2},
			{Type: AssertSaves, Count: 1},
			{Type: AssertBufferLen, Count: 3},
			{Type: AssertDirty, ID: "0", Value: true},
			{Type: AssertTraceCount, Action: "add", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 7)
}

func TestRun_SortOptions(t *testing.T) {
	scenario := &Scenario{
		Name:        "sort_nested",
		Description: "sort at a path, shallow",
		Initial: []map[string]any{{
			"id":   "0",
			"kids": []any{map[string]any{"v": 2}, map[string]any{"v": 1}},
		}},
		Steps: []Step{{Op: OpSort, Path: "0.kids", Key: "v", Shallow: true, MaxDepth: 2}},
		Assertions: []Assertion{
			{Type: AssertValueAt, Path: "0.kids.0.v", Value: 1},
			{Type: AssertLength, Path: "0.kids", Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, map[string]any{"key": "v", "shallow": true, "max_depth": 2}, result.Trace[0].Payload)
	assert.Equal(t, "0.kids", result.Trace[0].Path)
}
