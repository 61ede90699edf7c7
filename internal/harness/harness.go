package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/nestq/internal/buffer"
	"github.com/roach88/nestq/internal/middleware"
	"github.com/roach88/nestq/internal/persist/memory"
	"github.com/roach88/nestq/internal/queue"
	"github.com/roach88/nestq/internal/record"
)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	store    *queue.Store
	buffer   *buffer.Buffer
	adapter  *memory.Adapter
	recorder *middleware.Recorder
	logger   *slog.Logger
}

// Run executes a scenario against a fresh store and returns the result.
//
// Execution flow:
// 1. Seed a store with the scenario's initial records
// 2. Execute steps in order, recording failures
// 3. Evaluate assertions
// 4. Return result with pass/fail, trace, errors and final state
//
// The returned error is reserved for failures of the harness itself.
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}

	h := newHarness(scenario)
	defer h.buffer.Dispose()

	ctx := context.Background()
	if err := h.store.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("store not ready: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		err := h.executeStep(ctx, step)
		switch {
		case err != nil && !step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
		case err == nil && step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected an error", i, step.Op))
		}
		h.logger.Debug("step completed", "step", i, "op", step.Op, "error", err)
	}

	result.addActions(h.recorder.Actions())
	result.State = h.store.All()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}

	return result, nil
}

func newHarness(scenario *Scenario) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := memory.New()
	recorder := middleware.NewRecorder()

	st := queue.New(scenario.Initial,
		queue.WithPersistence(adapter),
		queue.WithMiddleware(recorder),
		queue.WithLogger(logger),
	)

	opts := []buffer.Option{
		buffer.WithAutoSave(false),
		buffer.WithLogger(logger),
	}
	if bo := scenario.Buffer; bo != nil {
		if bo.Size > 0 {
			opts = append(opts, buffer.WithBufferSize(bo.Size))
		}
		if bo.Locator == "identifier" {
			opts = append(opts, buffer.WithLocator(buffer.ByIdentifier(st)))
		}
	}

	return &Harness{
		store:    st,
		buffer:   buffer.New(st, opts...),
		adapter:  adapter,
		recorder: recorder,
		logger:   logger,
	}
}

// executeStep applies one step.
func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch step.Op {
	case OpAdd:
		return h.store.Add(ctx, record.Clone(step.Item), step.Path)
	case OpRemove:
		return h.store.Remove(ctx, step.Path)
	case OpUpdate:
		return h.store.Update(ctx, step.Path, record.CloneRecord(step.Changes))
	case OpSort:
		return h.store.Sort(ctx, step.Key, record.SortOptions{
			Path:      step.Path,
			Direction: record.Direction(step.Direction),
			Shallow:   step.Shallow,
			MaxDepth:  step.MaxDepth,
		})
	case OpClear:
		return h.store.Clear(ctx)

	case OpLoad:
		r, err := h.loadTarget(step)
		if err != nil {
			return err
		}
		_, err = h.buffer.Load(ctx, r)
		return err
	case OpCreate:
		r, ok := step.Item.(map[string]any)
		if !ok {
			return fmt.Errorf("item must be a mapping, got %T", step.Item)
		}
		_, err := h.buffer.Create(record.CloneRecord(r))
		return err
	case OpChange:
		_, err := h.buffer.Update(step.ID, record.CloneRecord(step.Changes))
		return err
	case OpDelete:
		return h.buffer.Delete(ctx, step.ID)
	case OpFlush:
		return h.buffer.Flush(ctx)
	case OpRollback:
		h.buffer.Rollback(step.ID)
		return nil
	case OpRollbackAll:
		h.buffer.RollbackAll()
		return nil
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// loadTarget returns the step's item, or the record the store holds at the
// step's path.
func (h *Harness) loadTarget(step Step) (record.Record, error) {
	if step.Item != nil {
		r, ok := step.Item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item must be a mapping, got %T", step.Item)
		}
		return record.CloneRecord(r), nil
	}

	v, ok := h.store.Get(step.Path)
	if !ok {
		return nil, fmt.Errorf("no value at %q", step.Path)
	}
	r, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("value at %q is %T, not a record", step.Path, v)
	}
	return r, nil
}
