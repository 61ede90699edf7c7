package queue

import (
	"context"

	"github.com/roach88/nestq/internal/record"
)

// Adapter persists the full state of a store.
//
// Implementations live under internal/persist. Every operation is attempted
// exactly once per call; there is no retry.
type Adapter interface {
	// Save overwrites the persisted state with state.
	Save(ctx context.Context, state []record.Record) error

	// Load returns the last saved state, or nil with a nil error when nothing
	// has been saved.
	Load(ctx context.Context) ([]record.Record, error)

	// Clear erases the persisted state.
	Clear(ctx context.Context) error
}
