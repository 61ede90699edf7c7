// Package queue implements the record store: an ordered sequence of records
// mutated only through actions.
//
// Every mutating call runs the same pipeline:
//
//	ready gate -> BeforeAction hooks -> mutate (copy-on-write)
//	    -> AfterAction hooks -> Adapter.Save -> subscribers
//
// Thread-safety model:
//   - Mutators (Add, Remove, Update, Sort, Clear) are serialized per store by
//     an action lock, so two concurrent calls never interleave their pipelines
//   - Reads (Get, All, Filter, Search, ...) take a read lock on the current
//     snapshot and are never blocked by a slow Save
//   - Subscribers are called after the action lock is released
//
// CRITICAL: hooks run while the action lock is held. A hook that calls a
// mutator on the same store deadlocks.
//
// Snapshots passed to hooks and subscribers are shared with the store and must
// be treated as read-only. Get and All return deep copies.
package queue
