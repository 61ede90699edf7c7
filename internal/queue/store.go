package queue

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/nestq/internal/path"
	"github.com/roach88/nestq/internal/record"
)

const tracerName = "github.com/roach88/nestq/internal/queue"

// Store is an ordered sequence of records with a middleware pipeline,
// optional persistence and change subscribers.
type Store struct {
	mu    sync.RWMutex
	state []record.Record

	// actionMu serializes pipelines. Held across hooks and Save.
	actionMu sync.Mutex

	middleware []Middleware
	adapter    Adapter
	autoload   bool
	logger     *slog.Logger
	tracer     trace.Tracer

	ready chan struct{}

	subMu   sync.Mutex
	subs    []subscription
	nextSub uint64
}

type subscription struct {
	id uint64
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence sets the adapter every applied action is saved to.
func WithPersistence(a Adapter) Option {
	return func(s *Store) {
		s.adapter = a
	}
}

// WithMiddleware appends middleware. Registration order is execution order.
func WithMiddleware(m ...Middleware) Option {
	return func(s *Store) {
		s.middleware = append(s.middleware, m...)
	}
}

// WithAutoload bootstraps state from the adapter in the background.
// Mutators wait for the bootstrap to finish. Without an adapter it has no effect.
func WithAutoload(enabled bool) Option {
	return func(s *Store) {
		s.autoload = enabled
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithTracer sets the tracer used for pipeline spans.
// Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = t
	}
}

// New creates a Store holding a deep copy of initial.
func New(initial []record.Record, opts ...Option) *Store {
	s := &Store{
		state:  record.CloneState(initial),
		logger: slog.Default(),
		ready:  make(chan struct{}),
	}
	if s.state == nil {
		s.state = []record.Record{}
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	if s.autoload && s.adapter != nil {
		go s.bootstrap()
	} else {
		close(s.ready)
	}

	return s
}

// bootstrap loads persisted state once. Failures are logged and the store
// keeps its initial state.
func (s *Store) bootstrap() {
	defer close(s.ready)

	ctx, span := s.tracer.Start(context.Background(), "queue.load")
	defer span.End()

	state, err := s.adapter.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("bootstrap load failed", "error", err)
		return
	}
	if state == nil {
		s.logger.Debug("bootstrap found no persisted state")
		return
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("bootstrap loaded state", "records", len(state))
	s.notify(state)
}

// Ready is closed once the bootstrap load has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until the store is ready or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add appends item to the root sequence (p == "") or to the sequence at p.
// At the root item must be a record. A target that is not a sequence is a
// silent no-op. The store keeps a deep copy of item.
func (s *Store) Add(ctx context.Context, item any, p string) error {
	return s.execute(ctx, record.Action{Type: record.ActionAdd, Payload: item, Path: p})
}

// Remove deletes the element at p. The last segment of p is an index into the
// sequence addressed by the rest of p.
func (s *Store) Remove(ctx context.Context, p string) error {
	return s.execute(ctx, record.Action{Type: record.ActionRemove, Path: p})
}

// Update shallow-merges a deep copy of partial over the mapping at p.
func (s *Store) Update(ctx context.Context, p string, partial record.Record) error {
	return s.execute(ctx, record.Action{Type: record.ActionUpdate, Payload: partial, Path: p})
}

// Sort orders the root sequence, or the sequence at opts.Path, by the value at
// key inside each element.
func (s *Store) Sort(ctx context.Context, key string, opts record.SortOptions) error {
	return s.execute(ctx, record.Action{
		Type:    record.ActionSort,
		Payload: record.SortPayload{Key: key, Options: opts},
		Path:    opts.Path,
	})
}

// Clear empties the store.
func (s *Store) Clear(ctx context.Context) error {
	return s.execute(ctx, record.Action{Type: record.ActionClear})
}

// ClearPersistence erases persisted state. In-memory state is untouched.
func (s *Store) ClearPersistence(ctx context.Context) error {
	if s.adapter == nil {
		return nil
	}
	return s.adapter.Clear(ctx)
}

// Get returns a deep copy of the value at p.
func (s *Store) Get(p string) (any, bool) {
	v, ok := path.Get(s.snapshot(), p)
	if !ok {
		return nil, false
	}
	return record.Clone(v), true
}

// All returns a deep copy of the current state.
func (s *Store) All() []record.Record {
	return record.CloneState(s.snapshot())
}

// Len returns the number of top-level records.
func (s *Store) Len() int {
	return len(s.snapshot())
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Listeners run in subscription order.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) snapshot() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// notify calls every listener synchronously. Panics are not recovered.
func (s *Store) notify(state []record.Record) {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
}
