// Package badger persists queue state in an embedded Badger key-value store.
//
// The state of a namespace is stored as canonical JSON under the key
// "nestq/<namespace>".
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/nestq/internal/record"
)

const keyPrefix = "nestq/"

// DefaultNamespace is used when a constructor is given an empty namespace.
const DefaultNamespace = "default"

// Adapter stores queue state for one namespace.
type Adapter struct {
	db  *badger.DB
	key []byte
}

// Open opens or creates a Badger database in dir.
func Open(dir, namespace string) (*Adapter, error) {
	return open(badger.DefaultOptions(dir), namespace)
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory(namespace string) (*Adapter, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), namespace)
}

func open(opts badger.Options, namespace string) (*Adapter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	// Badger logs to stderr by default.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Adapter{db: db, key: []byte(keyPrefix + namespace)}, nil
}

// Close closes the database.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Save overwrites the namespace's state.
func (a *Adapter) Save(ctx context.Context, state []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := record.MarshalState(state)
	if err != nil {
		return err
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(a.key, data)
	})
	if err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Load returns the saved state, or nil when the namespace has none.
func (a *Adapter) Load(ctx context.Context) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(a.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return record.UnmarshalState(data)
}

// Clear deletes the namespace's key.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(a.key)
	})
	if err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
