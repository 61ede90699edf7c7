package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

var _ queue.Adapter = (*Adapter)(nil)

func newMemAdapter(t *testing.T, ns string) *Adapter {
	t.Helper()
	a, err := OpenInMemory(ns)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestLoad_EmptyReturnsNil(t *testing.T) {
	a := newMemAdapter(t, "")

	state, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, []byte("nestq/default"), a.key)
}

func TestSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter(t, "jobs")

	require.NoError(t, a.Save(ctx, []record.Record{
		{"id": "a", "staff": []any{map[string]any{"name": "Bo", "age": 41}}},
	}))

	state, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{
		{"id": "a", "staff": []any{map[string]any{"name": "Bo", "age": int64(41)}}},
	}, state)

	require.NoError(t, a.Clear(ctx))
	state, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestClear_MissingKeyIsNotAnError(t *testing.T) {
	a := newMemAdapter(t, "")
	assert.NoError(t, a.Clear(context.Background()))
}

func TestCancelledContext(t *testing.T) {
	a := newMemAdapter(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, a.Save(ctx, nil), context.Canceled)
	_, err := a.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_ReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := Open(dir, "")
	require.NoError(t, err)
	require.NoError(t, a.Save(ctx, []record.Record{{"id": 7}}))
	require.NoError(t, a.Close())

	b, err := Open(dir, "")
	require.NoError(t, err)
	defer b.Close()

	state, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{"id": int64(7)}}, state)
}

func TestNamespacesShareDatabaseKeyspace(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter(t, "one")
	other := &Adapter{db: a.db, key: []byte(keyPrefix + "two")}

	require.NoError(t, a.Save(ctx, []record.Record{{"id": 1}}))

	state, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)
}
