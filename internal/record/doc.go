// Package record provides the data model shared by every nestq package.
//
// This package contains value types and pure helpers only. All other internal
// packages import record; record imports nothing internal.
//
// Key design constraints:
//   - A Record is a plain map[string]any so that paths can address any nested
//     mapping or sequence without reflection
//   - Records are identified by their "id" field, falling back to "key"
//   - Persisted state is always encoded with MarshalCanonical so that
//     identical states produce identical bytes
package record
