package middleware

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/nestq/internal/record"
)

// Recorder captures every applied action in order. Cancelled actions and
// actions that changed nothing never reach AfterAction and are not recorded.
type Recorder struct {
	mu      sync.Mutex
	actions []record.Action
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// BeforeAction implements queue.Middleware.
func (r *Recorder) BeforeAction(_ context.Context, a record.Action) (record.Action, bool) {
	return a, true
}

// AfterAction implements queue.Middleware.
func (r *Recorder) AfterAction(_ context.Context, a record.Action, _ []record.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Payload = record.Clone(a.Payload)
	r.actions = append(r.actions, a)
}

// Actions returns the recorded actions.
func (r *Recorder) Actions() []record.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.actions)
}

// Count returns how many recorded actions have type t. An empty t counts all.
func (r *Recorder) Count(t record.ActionType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == "" {
		return len(r.actions)
	}
	n := 0
	for _, a := range r.actions {
		if a.Type == t {
			n++
		}
	}
	return n
}

// Reset forgets all recorded actions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = nil
}
