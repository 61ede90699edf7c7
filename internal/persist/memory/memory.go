// Package memory provides a process-local persistence adapter.
package memory

import (
	"context"
	"sync"

	"github.com/roach88/nestq/internal/record"
)

// Adapter keeps a deep copy of the last saved state.
// Safe for concurrent use.
type Adapter struct {
	mu    sync.Mutex
	state []record.Record
	saved bool
	saves int
}

// New returns an empty adapter.
func New() *Adapter {
	return &Adapter{}
}

// Save stores a deep copy of state.
func (a *Adapter) Save(_ context.Context, state []record.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = record.CloneState(state)
	if a.state == nil {
		a.state = []record.Record{}
	}
	a.saved = true
	a.saves++
	return nil
}

// Load returns a deep copy of the saved state, or nil if nothing was saved.
func (a *Adapter) Load(_ context.Context) ([]record.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.saved {
		return nil, nil
	}
	return record.CloneState(a.state), nil
}

// Clear forgets the saved state.
func (a *Adapter) Clear(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = nil
	a.saved = false
	return nil
}

// Saves returns how many times Save has been called.
func (a *Adapter) Saves() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}
