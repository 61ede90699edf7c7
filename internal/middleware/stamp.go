package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

// IDGenerator produces record identifiers.
// Implemented by UUIDv7Generator, KSUIDGenerator and testutil.SequenceGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Format: "0190a6b2-7c1e-7d3a-9f41-2b6c8e0d5a17" (36 characters)
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7. Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// KSUIDGenerator generates K-Sortable Unique IDs (27 characters, base62).
//
// Thread-safety: stateless and safe for concurrent use.
type KSUIDGenerator struct{}

// Generate returns a new KSUID.
func (KSUIDGenerator) Generate() string {
	return ksuid.New().String()
}

// StampIDs gives root-level records added without an "id" or "key" field an
// "id" from gen. Records that already carry an identifier pass unchanged.
// The caller's record is never modified; the action carries a copy.
func StampIDs(gen IDGenerator) queue.Middleware {
	return queue.Hooks{
		Before: func(_ context.Context, a record.Action) (record.Action, bool) {
			if a.Type != record.ActionAdd || a.Path != "" {
				return a, true
			}
			r, ok := a.Payload.(map[string]any)
			if !ok || record.HasID(r) {
				return a, true
			}
			a.Payload = record.Merge(r, record.Record{"id": gen.Generate()})
			return a, true
		},
	}
}
