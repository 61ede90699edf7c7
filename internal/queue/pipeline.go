package queue

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/nestq/internal/record"
)

// execute runs one action through the pipeline.
//
// Order of operations:
//  1. Wait for the bootstrap gate
//  2. Acquire the action lock
//  3. BeforeAction hooks (may rewrite or cancel)
//  4. Mutate a copy; no change ends the call silently
//  5. Publish the snapshot, then AfterAction hooks
//  6. Save (errors propagate, subscribers are skipped)
//  7. Release the lock, notify subscribers
func (s *Store) execute(ctx context.Context, action record.Action) error {
	if err := s.WaitReady(ctx); err != nil {
		return err
	}

	// The store owns what it publishes; later edits to the caller's item
	// or changes must not reach the snapshot.
	action.Payload = record.Clone(action.Payload)

	ctx, span := s.tracer.Start(ctx, "queue."+string(action.Type),
		trace.WithAttributes(
			attribute.String("queue.action", string(action.Type)),
			attribute.String("queue.path", action.Path),
		),
	)
	defer span.End()

	next, err := s.apply(ctx, action, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if next != nil {
		s.notify(next)
	}
	return nil
}

// apply holds the action lock for steps 3 to 6. It returns the new snapshot,
// or nil when the action was cancelled or changed nothing.
func (s *Store) apply(ctx context.Context, action record.Action, span trace.Span) ([]record.Record, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	for _, m := range s.middleware {
		next, ok := m.BeforeAction(ctx, action)
		if !ok {
			span.SetAttributes(attribute.Bool("queue.cancelled", true))
			s.logger.Debug("action cancelled by middleware",
				"type", action.Type,
				"path", action.Path)
			return nil, nil
		}
		action = next
	}
	span.SetAttributes(attribute.Bool("queue.cancelled", false))

	next, changed, err := mutate(s.snapshot(), action)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", action.Type, action.Path, err)
	}
	span.SetAttributes(attribute.Bool("queue.changed", changed))
	if !changed {
		s.logger.Debug("action changed nothing",
			"type", action.Type,
			"path", action.Path)
		return nil, nil
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	for _, m := range s.middleware {
		m.AfterAction(ctx, action, next)
	}

	if s.adapter != nil {
		if err := s.adapter.Save(ctx, next); err != nil {
			return nil, fmt.Errorf("persist %s: %w", action.Type, err)
		}
	}

	s.logger.Debug("action applied",
		"type", action.Type,
		"path", action.Path,
		"records", len(next))

	return next, nil
}
