package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

var _ queue.Adapter = (*Adapter)(nil)

func TestAdapter(t *testing.T) {
	ctx := context.Background()
	a := New()

	state, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state, "nothing saved yet")

	saved := []record.Record{{"id": 1, "tags": []any{"x"}}}
	require.NoError(t, a.Save(ctx, saved))
	saved[0]["tags"].([]any)[0] = "mutated"

	state, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{"id": 1, "tags": []any{"x"}}}, state)

	state[0]["id"] = 2
	again, _ := a.Load(ctx)
	assert.Equal(t, 1, again[0]["id"], "Load returns a copy")

	require.NoError(t, a.Clear(ctx))
	state, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, 1, a.Saves())
}

func TestSave_NilStateLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	a := New()

	require.NoError(t, a.Save(ctx, nil))
	state, err := a.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, state)
	assert.Empty(t, state)
}

func TestStoreWritesThrough(t *testing.T) {
	ctx := context.Background()
	a := New()
	s := queue.New(nil, queue.WithPersistence(a))

	require.NoError(t, s.Add(ctx, record.Record{"id": "a"}, ""))
	require.NoError(t, s.Update(ctx, "0", record.Record{"done": true}))

	state, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{"id": "a", "done": true}}, state)
	assert.Equal(t, 2, a.Saves())
}
