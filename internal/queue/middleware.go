package queue

import (
	"context"

	"github.com/roach88/nestq/internal/record"
)

// Middleware observes and rewrites actions around a mutation.
//
// BeforeAction runs in registration order and may return a transformed
// action. Returning ok=false cancels the action: no mutation, no later hooks,
// no persistence, no notification, and a nil error for the caller.
//
// AfterAction runs in registration order with the final action and the
// post-mutation snapshot. It cannot change state.
type Middleware interface {
	BeforeAction(ctx context.Context, action record.Action) (record.Action, bool)
	AfterAction(ctx context.Context, action record.Action, state []record.Record)
}

// Hooks adapts a pair of functions to Middleware. Either may be nil.
type Hooks struct {
	Before func(ctx context.Context, action record.Action) (record.Action, bool)
	After  func(ctx context.Context, action record.Action, state []record.Record)
}

// BeforeAction implements Middleware.
func (h Hooks) BeforeAction(ctx context.Context, action record.Action) (record.Action, bool) {
	if h.Before == nil {
		return action, true
	}
	return h.Before(ctx, action)
}

// AfterAction implements Middleware.
func (h Hooks) AfterAction(ctx context.Context, action record.Action, state []record.Record) {
	if h.After != nil {
		h.After(ctx, action, state)
	}
}

// Listener receives the new snapshot after every applied action.
type Listener func(state []record.Record)
