package nestq

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/config"
	"github.com/roach88/nestq/internal/middleware"
	"github.com/roach88/nestq/internal/record"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DSN = filepath.Join(t.TempDir(), "queue.db")
	cfg.AutoSave = false
	return cfg
}

func TestOpen_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	q, err := Open(ctx, cfg, WithLogger(discard()))
	require.NoError(t, err)

	require.NoError(t, q.Add(ctx, record.Record{"v": 1}, ""))
	_, err = q.Buffer().Create(record.Record{"id": "b", "v": 2})
	require.NoError(t, err)
	require.NoError(t, q.Close(ctx))

	q2, err := Open(ctx, cfg, WithLogger(discard()))
	require.NoError(t, err)
	defer q2.Close(ctx)

	all := q2.All()
	require.Len(t, all, 2)

	id, ok := all[0]["id"].(string)
	require.True(t, ok, "stamped id should be a string, got %T", all[0]["id"])
	assert.Len(t, id, 36, "uuid")
	assert.Equal(t, "b", all[1]["id"])
	assert.Equal(t, int64(2), all[1]["v"])
}

func TestOpen_KSUIDAndNoStamping(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.AutoSave = false
	cfg.IDGenerator = config.IDGeneratorKSUID

	q, err := Open(ctx, cfg, WithLogger(discard()))
	require.NoError(t, err)
	require.NoError(t, q.Add(ctx, record.Record{"v": 1}, ""))
	id, _ := q.Get("0.id")
	assert.Len(t, id, 27)
	require.NoError(t, q.Close(ctx))

	cfg.IDGenerator = config.IDGeneratorNone
	q, err = Open(ctx, cfg, WithLogger(discard()))
	require.NoError(t, err)
	defer q.Close(ctx)
	require.NoError(t, q.Add(ctx, record.Record{"v": 1}, ""))
	_, ok := q.Get("0.id")
	assert.False(t, ok)
}

func TestOpen_SchemaRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	schema := filepath.Join(t.TempDir(), "record.cue")
	require.NoError(t, os.WriteFile(schema, []byte(`#Record: {id: string, v?: int}`), 0644))

	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.AutoSave = false
	cfg.Schema = schema

	q, err := Open(ctx, cfg, WithLogger(discard()))
	require.NoError(t, err)
	defer q.Close(ctx)

	require.NoError(t, q.Add(ctx, record.Record{"v": "not an int"}, ""))
	require.NoError(t, q.Add(ctx, record.Record{"v": 3}, ""))
	assert.Equal(t, 1, q.Len())
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Backend = "mongo"
	_, err := Open(ctx, cfg)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)

	cfg = config.Default()
	cfg.Backend = config.BackendMemory
	cfg.Schema = filepath.Join(t.TempDir(), "missing.cue")
	_, err = Open(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema")

	bad := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(bad, []byte(`#Record: {`), 0644))
	cfg.Schema = bad
	_, err = Open(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile schema")
}

func TestOpen_ExtraMiddlewareRunsAfterBuiltins(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.AutoSave = false

	rec := middleware.NewRecorder()
	q, err := Open(ctx, cfg, WithLogger(discard()), WithMiddleware(rec))
	require.NoError(t, err)
	defer q.Close(ctx)

	require.NoError(t, q.Add(ctx, record.Record{"v": 1}, ""))

	actions := rec.Actions()
	require.Len(t, actions, 1)
	payload := actions[0].Payload.(map[string]any)
	assert.Contains(t, payload, "id", "recorder sees the stamped record")
}

func TestOpenAdapter_Badger(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendBadger
	cfg.DSN = t.TempDir()

	a, closer, err := OpenAdapter(cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	state, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}
