// Package nestq assembles a queue store, its persistence backend and a
// write-behind buffer from a config.Config.
package nestq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/nestq/internal/buffer"
	"github.com/roach88/nestq/internal/config"
	"github.com/roach88/nestq/internal/middleware"
	"github.com/roach88/nestq/internal/persist/badger"
	"github.com/roach88/nestq/internal/persist/memory"
	"github.com/roach88/nestq/internal/persist/postgres"
	"github.com/roach88/nestq/internal/persist/sqlite"
	"github.com/roach88/nestq/internal/queue"
)

// Queue is a store with persistence, default middleware and a buffer.
// The embedded Store serves direct reads and writes.
type Queue struct {
	*queue.Store

	buffer *buffer.Buffer
	closer io.Closer
}

type options struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	middleware []queue.Middleware
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger for the store, its middleware and the buffer.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracer sets the tracer for store spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMiddleware appends middleware after the built-in chain
// (logging, id stamping, schema validation).
func WithMiddleware(m ...queue.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, m...)
	}
}

// Open builds a Queue from cfg, loads persisted state and waits until the
// store is ready.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	chain, err := buildMiddleware(cfg, o.logger)
	if err != nil {
		return nil, err
	}
	chain = append(chain, o.middleware...)

	adapter, closer, err := OpenAdapter(cfg)
	if err != nil {
		return nil, err
	}

	storeOpts := []queue.Option{
		queue.WithPersistence(adapter),
		queue.WithAutoload(true),
		queue.WithMiddleware(chain...),
		queue.WithLogger(o.logger),
	}
	if o.tracer != nil {
		storeOpts = append(storeOpts, queue.WithTracer(o.tracer))
	}
	st := queue.New(nil, storeOpts...)

	if err := st.WaitReady(ctx); err != nil {
		closeQuietly(closer)
		return nil, err
	}

	buf := buffer.New(st,
		buffer.WithAutoSave(cfg.AutoSave),
		buffer.WithBufferSize(cfg.BufferSize),
		buffer.WithFlushInterval(cfg.FlushInterval),
		buffer.WithLocator(buffer.ByIdentifier(st)),
		buffer.WithLogger(o.logger),
	)

	return &Queue{Store: st, buffer: buf, closer: closer}, nil
}

// Buffer returns the queue's write-behind buffer.
func (q *Queue) Buffer() *buffer.Buffer {
	return q.buffer
}

// Close flushes pending buffered changes, stops auto-save and closes the
// backend. The backend is closed even when the flush fails.
func (q *Queue) Close(ctx context.Context) error {
	flushErr := q.buffer.Flush(ctx)
	q.buffer.Dispose()

	var closeErr error
	if q.closer != nil {
		closeErr = q.closer.Close()
	}
	return errors.Join(flushErr, closeErr)
}

// OpenAdapter opens the persistence backend cfg names. The closer is nil for
// backends that hold no resources.
func OpenAdapter(cfg *config.Config) (queue.Adapter, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil, nil
	case config.BackendSQLite:
		a, err := sqlite.Open(cfg.DSN, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	case config.BackendBadger:
		a, err := badger.Open(cfg.DSN, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	case config.BackendPostgres:
		a, err := postgres.Open(cfg.DSN, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	}
	return nil, nil, fmt.Errorf("%w %q", config.ErrUnknownBackend, cfg.Backend)
}

func buildMiddleware(cfg *config.Config, logger *slog.Logger) ([]queue.Middleware, error) {
	chain := []queue.Middleware{middleware.Logger(logger)}

	switch cfg.IDGenerator {
	case config.IDGeneratorUUID:
		chain = append(chain, middleware.StampIDs(middleware.UUIDv7Generator{}))
	case config.IDGeneratorKSUID:
		chain = append(chain, middleware.StampIDs(middleware.KSUIDGenerator{}))
	}

	if cfg.Schema != "" {
		src, err := os.ReadFile(cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		v, err := middleware.CompileSchema(string(src), logger)
		if err != nil {
			return nil, err
		}
		chain = append(chain, v)
	}

	return chain, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}
