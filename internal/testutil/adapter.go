package testutil

import (
	"context"
	"sync"

	"github.com/roach88/nestq/internal/record"
)

// RecordingAdapter is an in-memory persistence adapter that records every
// save and can be told to fail.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingAdapter struct {
	mu      sync.Mutex
	state   []record.Record
	saved   bool
	saves   [][]record.Record
	loads   int
	clears  int
	SaveErr error
	LoadErr error
}

// NewRecordingAdapter creates an adapter whose Load returns initial.
// A nil initial behaves like an empty backend (Load returns nil, nil).
func NewRecordingAdapter(initial []record.Record) *RecordingAdapter {
	return &RecordingAdapter{
		state: record.CloneState(initial),
		saved: initial != nil,
	}
}

// Save records a deep copy of state, or returns SaveErr when set.
func (a *RecordingAdapter) Save(_ context.Context, state []record.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.SaveErr != nil {
		return a.SaveErr
	}
	a.state = record.CloneState(state)
	a.saved = true
	a.saves = append(a.saves, record.CloneState(state))
	return nil
}

// Load returns the last saved state, or LoadErr when set.
func (a *RecordingAdapter) Load(_ context.Context) ([]record.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loads++
	if a.LoadErr != nil {
		return nil, a.LoadErr
	}
	if !a.saved {
		return nil, nil
	}
	return record.CloneState(a.state), nil
}

// Clear forgets the saved state.
func (a *RecordingAdapter) Clear(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clears++
	a.state = nil
	a.saved = false
	return nil
}

// SaveCount returns the number of successful saves.
func (a *RecordingAdapter) SaveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.saves)
}

// LastSave returns the most recent saved state, or nil.
func (a *RecordingAdapter) LastSave() []record.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.saves) == 0 {
		return nil
	}
	return record.CloneState(a.saves[len(a.saves)-1])
}

// Clears returns how many times Clear was called.
func (a *RecordingAdapter) Clears() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clears
}

// Loads returns how many times Load was called.
func (a *RecordingAdapter) Loads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loads
}
