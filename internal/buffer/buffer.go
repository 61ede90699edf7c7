package buffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/nestq/internal/record"
)

// Default configuration.
const (
	DefaultBufferSize    = 100
	DefaultFlushInterval = 5 * time.Second
)

// ErrNotFound is returned by Update for an id that is not buffered.
var ErrNotFound = errors.New("record not found in buffer")

// Store is the subset of queue.Store a Buffer writes through.
type Store interface {
	Add(ctx context.Context, item any, p string) error
	Update(ctx context.Context, p string, partial record.Record) error
	Remove(ctx context.Context, p string) error
}

// ActiveRecord wraps a buffered record.
//
// The wrapper is owned by its Buffer: read its fields only while no flush or
// mutation can run concurrently, or take a copy with Buffer.Snapshot.
type ActiveRecord struct {
	// ID is fixed when the record enters the buffer. Changing the id field
	// through Update does not re-key the wrapper.
	ID           string
	Data         record.Record
	Changes      record.Record
	OriginalData record.Record
	IsDirty      bool
	IsNew        bool

	// version counts mutations so a flush can tell whether the record
	// changed while its write was in flight.
	version uint64
}

func (ar *ActiveRecord) clone() ActiveRecord {
	return ActiveRecord{
		ID:           ar.ID,
		Data:         record.CloneRecord(ar.Data),
		Changes:      record.CloneRecord(ar.Changes),
		OriginalData: record.CloneRecord(ar.OriginalData),
		IsDirty:      ar.IsDirty,
		IsNew:        ar.IsNew,
	}
}

// Buffer batches record changes in front of a Store.
type Buffer struct {
	store Store

	// flushMu serializes the store writes of Flush and Delete so that two
	// flushes never write the same change twice.
	flushMu sync.Mutex

	// mu guards records, order and disposed. It is never held while the
	// store runs, so listeners may read the buffer during a flush.
	mu       sync.Mutex
	records  map[string]*ActiveRecord
	order    []string
	disposed bool

	autoSave      bool
	bufferSize    int
	flushInterval time.Duration
	idOf          func(record.Record) (string, error)
	locate        Locator
	logger        *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithAutoSave enables or disables the periodic flush. Default: enabled.
func WithAutoSave(enabled bool) Option {
	return func(b *Buffer) {
		b.autoSave = enabled
	}
}

// WithBufferSize sets how many records Load may hold before it flushes.
// Default: 100.
func WithBufferSize(n int) Option {
	return func(b *Buffer) {
		b.bufferSize = n
	}
}

// WithFlushInterval sets the auto-save period. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(b *Buffer) {
		b.flushInterval = d
	}
}

// WithIDFunc overrides identifier extraction. Default: record.IDOf.
func WithIDFunc(fn func(record.Record) (string, error)) Option {
	return func(b *Buffer) {
		b.idOf = fn
	}
}

// WithLocator sets how a buffered id maps to a store path. Default: ByPosition.
func WithLocator(l Locator) Option {
	return func(b *Buffer) {
		b.locate = l
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Buffer) {
		b.logger = l
	}
}

// New creates a Buffer in front of store and starts auto-save if enabled.
// Call Dispose to stop it.
func New(store Store, opts ...Option) *Buffer {
	b := &Buffer{
		store:         store,
		records:       make(map[string]*ActiveRecord),
		autoSave:      true,
		bufferSize:    DefaultBufferSize,
		flushInterval: DefaultFlushInterval,
		idOf:          record.IDOf,
		locate:        ByPosition,
		logger:        slog.Default(),
		stop:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.autoSave && b.flushInterval > 0 {
		go b.runAutoSave()
	}

	return b
}

func (b *Buffer) runAutoSave() {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if err := b.flush(context.Background(), true); err != nil {
				b.logger.Error("auto-save flush failed", "error", err)
			}
		}
	}
}

// Load buffers a clean copy of r and returns its wrapper. Loading an id that
// is already buffered returns the existing wrapper unchanged.
//
// When the buffer then holds more than the configured size, Load flushes
// before returning; a flush error is returned alongside the wrapper.
func (b *Buffer) Load(ctx context.Context, r record.Record) (*ActiveRecord, error) {
	id, err := b.idOf(r)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if ar, ok := b.records[id]; ok {
		b.mu.Unlock()
		return ar, nil
	}

	ar := &ActiveRecord{
		ID:           id,
		Data:         record.CloneRecord(r),
		Changes:      record.Record{},
		OriginalData: record.CloneRecord(r),
	}
	b.insertLocked(ar)
	spill := len(b.records) > b.bufferSize
	b.mu.Unlock()

	if spill {
		b.logger.Debug("buffer full, flushing", "size", b.bufferSize)
		if err := b.Flush(ctx); err != nil {
			return ar, err
		}
	}
	return ar, nil
}

// Create buffers r as a new record. Every field counts as changed.
// Creating an id that is already buffered replaces its wrapper.
func (b *Buffer) Create(r record.Record) (*ActiveRecord, error) {
	id, err := b.idOf(r)
	if err != nil {
		return nil, err
	}

	ar := &ActiveRecord{
		ID:           id,
		Data:         record.CloneRecord(r),
		Changes:      record.CloneRecord(r),
		OriginalData: record.Record{},
		IsDirty:      true,
		IsNew:        true,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertLocked(ar)
	return ar, nil
}

// Update shallow-merges changes into the buffered data and into the
// accumulated changes. An empty changes map leaves the record untouched.
func (b *Buffer) Update(id string, changes record.Record) (*ActiveRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ar, ok := b.records[id]
	if !ok {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if len(changes) == 0 {
		return ar, nil
	}

	changes = record.CloneRecord(changes)
	ar.Data = record.Merge(ar.Data, changes)
	ar.Changes = record.Merge(ar.Changes, changes)
	ar.IsDirty = true
	ar.version++
	return ar, nil
}

// Delete removes the record from the store and drops its wrapper, bypassing
// the flush cycle. Ids that are not buffered are ignored. If the store
// rejects the removal the wrapper is kept.
func (b *Buffer) Delete(ctx context.Context, id string) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	_, ok := b.records[id]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	if p, ok := b.locate(id); ok {
		if err := b.store.Remove(ctx, p); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	} else {
		b.logger.Debug("deleted record has no store path", "id", id)
	}

	b.mu.Lock()
	b.removeLocked(id)
	b.mu.Unlock()
	return nil
}

// Get returns the wrapper for id.
func (b *Buffer) Get(id string) (*ActiveRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ar, ok := b.records[id]
	return ar, ok
}

// Snapshot returns a deep copy of the wrapper for id.
func (b *Buffer) Snapshot(id string) (ActiveRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ar, ok := b.records[id]
	if !ok {
		return ActiveRecord{}, false
	}
	return ar.clone(), true
}

// HasChanges reports whether id is buffered and dirty.
func (b *Buffer) HasChanges(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ar, ok := b.records[id]
	return ok && ar.IsDirty
}

// DirtyRecords returns the dirty wrappers in insertion order.
func (b *Buffer) DirtyRecords() []*ActiveRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirtyLocked()
}

// All returns every wrapper in insertion order.
func (b *Buffer) All() []*ActiveRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*ActiveRecord, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.records[id])
	}
	return out
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Flush writes every dirty record to the store in insertion order and then
// empties the buffer.
//
// New records are added at the root with their full data. Other dirty
// records are updated at the path the locator returns, with only their
// accumulated changes; a record the locator cannot place is skipped with a
// warning. On a store error Flush stops and returns it. Records written
// before the error are clean, the rest stay dirty, and nothing is discarded.
//
// The buffer is not locked while the store runs, so store listeners may read
// it. A record updated while its write is in flight stays dirty and buffered
// for the next flush. Listeners and hooks must not call Flush or Delete:
// both wait for the flush in progress.
func (b *Buffer) Flush(ctx context.Context) error {
	return b.flush(ctx, false)
}

// pending is a dirty record captured by a flush.
type pending struct {
	ar      *ActiveRecord
	version uint64
	isNew   bool
	data    record.Record
	changes record.Record
}

func (b *Buffer) flush(ctx context.Context, auto bool) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if auto && b.disposed {
		b.mu.Unlock()
		return nil
	}
	var batch []pending
	for _, ar := range b.dirtyLocked() {
		batch = append(batch, pending{
			ar:      ar,
			version: ar.version,
			isNew:   ar.IsNew,
			data:    record.CloneRecord(ar.Data),
			changes: record.CloneRecord(ar.Changes),
		})
	}
	b.mu.Unlock()

	for _, p := range batch {
		if err := b.write(ctx, p); err != nil {
			return fmt.Errorf("flush %s: %w", p.ar.ID, err)
		}
		b.mu.Lock()
		b.markWrittenLocked(p)
		b.mu.Unlock()
	}

	b.mu.Lock()
	for _, id := range append([]string(nil), b.order...) {
		if !b.records[id].IsDirty {
			b.removeLocked(id)
		}
	}
	b.mu.Unlock()
	return nil
}

func (b *Buffer) write(ctx context.Context, p pending) error {
	if p.isNew {
		return b.store.Add(ctx, p.data, "")
	}
	path, ok := b.locate(p.ar.ID)
	if !ok {
		b.logger.Warn("flush skipped record with no store path", "id", p.ar.ID)
		return nil
	}
	return b.store.Update(ctx, path, p.changes)
}

// markWrittenLocked resyncs a written record. A wrapper that was replaced or
// dropped meanwhile is left alone; one that was updated meanwhile keeps its
// changes and stays dirty.
func (b *Buffer) markWrittenLocked(p pending) {
	if cur, ok := b.records[p.ar.ID]; !ok || cur != p.ar {
		return
	}
	ar := p.ar
	ar.IsNew = false
	if ar.version != p.version {
		ar.OriginalData = p.data
		return
	}
	ar.IsDirty = false
	ar.Changes = record.Record{}
	ar.OriginalData = record.CloneRecord(ar.Data)
}

// Rollback restores the data a record had when it was loaded or last
// flushed and discards its changes. Unknown ids are ignored.
//
// A new record that was never flushed is not reset to its empty
// OriginalData: it is dropped from the buffer instead, so a rolled-back
// create leaves nothing behind.
func (b *Buffer) Rollback(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollbackLocked(id)
}

// RollbackAll rolls back every buffered record.
func (b *Buffer) RollbackAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range append([]string(nil), b.order...) {
		b.rollbackLocked(id)
	}
}

// Clear discards every wrapper without writing anything.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
}

// Dispose stops future auto-save flushes and clears the buffer. It does not
// flush, and it does not wait for a flush already in flight; that flush
// finishes its writes but no longer touches the buffer's records.
// Safe to call more than once.
func (b *Buffer) Dispose() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.clearLocked()
}

func (b *Buffer) rollbackLocked(id string) {
	ar, ok := b.records[id]
	if !ok {
		return
	}
	if ar.IsNew {
		b.removeLocked(id)
		return
	}
	ar.Data = record.CloneRecord(ar.OriginalData)
	ar.Changes = record.Record{}
	ar.IsDirty = false
	ar.version++
}

func (b *Buffer) dirtyLocked() []*ActiveRecord {
	var out []*ActiveRecord
	for _, id := range b.order {
		if ar := b.records[id]; ar.IsDirty {
			out = append(out, ar)
		}
	}
	return out
}

func (b *Buffer) insertLocked(ar *ActiveRecord) {
	if _, exists := b.records[ar.ID]; !exists {
		b.order = append(b.order, ar.ID)
	}
	b.records[ar.ID] = ar
}

func (b *Buffer) removeLocked(id string) {
	delete(b.records, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Buffer) clearLocked() {
	b.records = make(map[string]*ActiveRecord)
	b.order = nil
}
