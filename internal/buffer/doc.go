// Package buffer implements a write-behind cache of records in front of a
// queue.Store.
//
// Records enter the buffer through Load (clean) or Create (new). Updates are
// applied to the buffered copy only and accumulated as changes. Flush writes
// new records with an add action and changed records with an update action
// carrying only the changes, then discards every wrapper.
//
// Record lifecycle:
//
//	Load   -> Clean
//	Create -> New (dirty)
//	Clean  -> Dirty   via Update
//	Dirty  -> Clean   via Rollback
//	any    -> gone    via Flush (after persisting), Delete, Clear, Dispose
//
// Flushes are triggered explicitly, by a Load that pushes the buffer past its
// size limit, or by the auto-save ticker. All of them are serialized. The
// buffer's own lock is released while the store runs, so store listeners can
// read the buffer in the middle of a flush.
//
// Dispose does NOT flush. Unflushed changes are dropped.
package buffer
