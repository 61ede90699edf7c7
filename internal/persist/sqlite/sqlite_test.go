package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

var _ queue.Adapter = (*Adapter)(nil)

// createTestAdapter opens a fresh database in a temp dir.
func createTestAdapter(t *testing.T, namespace string) *Adapter {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "test.db"), namespace)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	a, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer a.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if a.Namespace() != DefaultNamespace {
		t.Errorf("Namespace() = %q, want %q", a.Namespace(), DefaultNamespace)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		a, err := Open(path, "ns")
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		a.Close()
	}

	a, err := Open(path, "ns")
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer a.Close()

	var version int
	if err := a.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version query failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	a := createTestAdapter(t, "")

	var mode string
	if err := a.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestOpen_MigratesV0Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE queue_state (
		namespace TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		t.Fatalf("create v0 table failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO queue_state VALUES ('default', '[{"id":1}]', 4)`); err != nil {
		t.Fatalf("seed v0 row failed: %v", err)
	}
	db.Close()

	a, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open() on v0 database failed: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	seq, records, err := a.Stat(ctx)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if seq != 4 || records != 0 {
		t.Errorf("Stat() = (%d, %d), want (4, 0)", seq, records)
	}

	state, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := []record.Record{{"id": int64(1)}}; !reflect.DeepEqual(state, want) {
		t.Errorf("Load() = %v, want %v", state, want)
	}
}

func TestLoad_Empty(t *testing.T) {
	a := createTestAdapter(t, "")

	state, err := a.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if state != nil {
		t.Errorf("Load() = %v, want nil", state)
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	a := createTestAdapter(t, "")

	state := []record.Record{
		{"id": 1, "name": "Ana", "score": 2.5, "tags": []any{"a", "b"}},
		{"id": "x", "nested": map[string]any{"ok": true}},
	}
	if err := a.Save(ctx, state); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := a.Save(ctx, state); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := []record.Record{
		{"id": int64(1), "name": "Ana", "score": 2.5, "tags": []any{"a", "b"}},
		{"id": "x", "nested": map[string]any{"ok": true}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}

	seq, records, err := a.Stat(ctx)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if seq != 2 || records != 2 {
		t.Errorf("Stat() = (%d, %d), want (2, 2)", seq, records)
	}
}

func TestSave_EmptyState(t *testing.T) {
	ctx := context.Background()
	a := createTestAdapter(t, "")

	if err := a.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil) failed: %v", err)
	}
	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %#v, want empty non-nil state", got)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	a := createTestAdapter(t, "")

	if err := a.Save(ctx, []record.Record{{"id": 1}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != nil {
		t.Errorf("Load() after Clear = %v, want nil", got)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	a, err := Open(path, "a")
	if err != nil {
		t.Fatalf("Open(a) failed: %v", err)
	}
	defer a.Close()
	b, err := Open(path, "b")
	if err != nil {
		t.Fatalf("Open(b) failed: %v", err)
	}
	defer b.Close()

	if err := a.Save(ctx, []record.Record{{"id": "from-a"}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != nil {
		t.Errorf("namespace b sees %v", got)
	}
}

func TestStore_AutoloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	a1, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s1 := queue.New(nil, queue.WithPersistence(a1))
	if err := s1.Add(ctx, record.Record{"id": 1, "v": 1}, ""); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	a1.Close()

	a2, err := Open(path, "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer a2.Close()

	s2 := queue.New(nil, queue.WithPersistence(a2), queue.WithAutoload(true))
	if err := s2.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady() failed: %v", err)
	}
	v, ok := s2.Get("0.v")
	if !ok || v != int64(1) {
		t.Errorf("Get(0.v) = %v, %v; want 1, true", v, ok)
	}
}
