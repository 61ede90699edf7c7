package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/nestq/internal/path"
	"github.com/roach88/nestq/internal/record"
)

// RecordDefinition is the definition SchemaValidator validates against when
// the schema declares it. Definitions are closed, so unknown fields fail.
// Without it the whole (open) schema file is used.
const RecordDefinition = "#Record"

// SchemaValidator cancels actions whose records violate a CUE schema.
//
// Checked actions:
//   - root add: the record must unify and be concrete
//   - update of a top-level record (path "N"): the changes must unify;
//     fields they leave out are not required
//
// Everything else passes through. Rejections are logged at warn level.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so validation
// is serialized by an internal mutex.
type SchemaValidator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
	logger *slog.Logger
}

// CompileSchema compiles src into a validator. A nil logger means slog.Default().
func CompileSchema(src string, logger *slog.Logger) (*SchemaValidator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %s", cueerrors.Details(err, nil))
	}

	if def := v.LookupPath(cue.ParsePath(RecordDefinition)); def.Exists() {
		v = def
	}

	return &SchemaValidator{
		ctx:    ctx,
		schema: v,
		logger: logger,
	}, nil
}

// Validate checks r against the schema. With concrete set, every required
// field must be present with a concrete value.
func (s *SchemaValidator) Validate(r record.Record, concrete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.schema.Unify(s.ctx.Encode(r))

	var err error
	if concrete {
		err = v.Validate(cue.Concrete(true))
	} else {
		err = v.Validate()
	}
	if err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// BeforeAction implements queue.Middleware.
func (s *SchemaValidator) BeforeAction(ctx context.Context, a record.Action) (record.Action, bool) {
	var (
		r        record.Record
		concrete bool
	)

	switch {
	case a.Type == record.ActionAdd && a.Path == "":
		r, _ = a.Payload.(map[string]any)
		concrete = true
	case a.Type == record.ActionUpdate && isTopLevel(a.Path):
		r, _ = a.Payload.(map[string]any)
	default:
		return a, true
	}
	if r == nil {
		return a, true
	}

	if err := s.Validate(r, concrete); err != nil {
		s.logger.WarnContext(ctx, "action rejected by schema",
			"type", a.Type,
			"path", a.Path,
			"error", err)
		return a, false
	}
	return a, true
}

// AfterAction implements queue.Middleware.
func (s *SchemaValidator) AfterAction(context.Context, record.Action, []record.Record) {}

func isTopLevel(p string) bool {
	segs, ok := path.Parse(p)
	if !ok || len(segs) != 1 {
		return false
	}
	_, ok = path.Index(segs[0], int(^uint(0)>>1))
	return ok
}
