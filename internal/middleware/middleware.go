package middleware

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

var (
	_ queue.Middleware = (*SchemaValidator)(nil)
	_ queue.Middleware = (*Recorder)(nil)
)

// Logger logs each action at debug level before it is applied and at info
// level after.
func Logger(logger *slog.Logger) queue.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return queue.Hooks{
		Before: func(ctx context.Context, a record.Action) (record.Action, bool) {
			logger.DebugContext(ctx, "action received",
				"type", a.Type,
				"path", a.Path)
			return a, true
		},
		After: func(ctx context.Context, a record.Action, state []record.Record) {
			logger.InfoContext(ctx, "action applied",
				"type", a.Type,
				"path", a.Path,
				"records", len(state))
		},
	}
}

// Deny cancels every action whose type is listed. Deny(record.ActionRemove,
// record.ActionClear) makes a store append-only.
func Deny(types ...record.ActionType) queue.Middleware {
	denied := slices.Clone(types)
	return queue.Hooks{
		Before: func(_ context.Context, a record.Action) (record.Action, bool) {
			return a, !slices.Contains(denied, a.Type)
		},
	}
}
