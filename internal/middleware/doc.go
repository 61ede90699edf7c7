// Package middleware provides ready-made queue.Middleware implementations.
//
//   - Logger: structured logging of every action
//   - Deny: cancels actions of the given types
//   - StampIDs: assigns identifiers to records added without one
//   - SchemaValidator: cancels adds and updates that violate a CUE schema
//   - Recorder: captures applied actions for inspection
//
// Middleware run while the store holds its action lock. None of them call
// back into the store.
package middleware
