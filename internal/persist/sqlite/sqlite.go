// Package sqlite persists queue state in a SQLite database.
//
// Each namespace is one row of queue_state holding the canonical JSON of the
// full state. Several queues can share a database file under different
// namespaces.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: SQLite allows one writer at a time
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/nestq/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added queue_state.records (record count of the saved state)
const currentSchemaVersion = 1

// DefaultNamespace is used when Open is given an empty namespace.
const DefaultNamespace = "default"

// Adapter stores queue state for one namespace.
type Adapter struct {
	db        *sql.DB
	namespace string
}

// Open creates or opens a SQLite database at path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path, namespace string) (*Adapter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Adapter{db: db, namespace: namespace}, nil
}

// Close closes the database connection.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Namespace returns the namespace this adapter reads and writes.
func (a *Adapter) Namespace() string {
	return a.namespace
}

// Save replaces the namespace's state and bumps its seq.
func (a *Adapter) Save(ctx context.Context, state []record.Record) error {
	data, err := record.MarshalState(state)
	if err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO queue_state (namespace, data, seq, records)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(namespace) DO UPDATE SET
			data = excluded.data,
			seq = queue_state.seq + 1,
			records = excluded.records
	`, a.namespace, string(data), len(state))
	if err != nil {
		return fmt.Errorf("save %s: %w", a.namespace, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the saved state, or nil when the namespace has none.
func (a *Adapter) Load(ctx context.Context) ([]record.Record, error) {
	var data string
	err := a.db.QueryRowContext(ctx,
		"SELECT data FROM queue_state WHERE namespace = ?",
		a.namespace,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.namespace, err)
	}
	return record.UnmarshalState([]byte(data))
}

// Clear deletes the namespace's row.
func (a *Adapter) Clear(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx,
		"DELETE FROM queue_state WHERE namespace = ?",
		a.namespace,
	); err != nil {
		return fmt.Errorf("clear %s: %w", a.namespace, err)
	}
	return nil
}

// Stat returns how many times the namespace has been saved and how many
// records the last save held. Both are zero when nothing is saved.
func (a *Adapter) Stat(ctx context.Context) (seq, records int64, err error) {
	err = a.db.QueryRowContext(ctx,
		"SELECT seq, records FROM queue_state WHERE namespace = ?",
		a.namespace,
	).Scan(&seq, &records)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", a.namespace, err)
	}
	return seq, records, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the records column. Databases already carrying it are
// left alone.
func migrateToV1(db *sql.DB) error {
	exists, err := hasColumn(db, "queue_state", "records")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(
		"ALTER TABLE queue_state ADD COLUMN records INTEGER NOT NULL DEFAULT 0",
	); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	).Scan(&n)
	return n > 0, err
}
