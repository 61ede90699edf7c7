package harness

import "github.com/roach88/nestq/internal/record"

// TraceEvent is one applied action.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Path    string `json:"path,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists the applied actions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final store state.
	State []record.Record `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addActions appends applied actions to the trace, numbering from 1.
func (r *Result) addActions(actions []record.Action) {
	for _, a := range actions {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:     int64(len(r.Trace) + 1),
			Type:    string(a.Type),
			Path:    a.Path,
			Payload: tracePayload(a),
		})
	}
}

// tracePayload renders an action payload as plain data. Sort payloads carry
// options, and a comparator function has no data form, so only the
// serialisable fields are kept.
func tracePayload(a record.Action) any {
	sp, ok := a.Payload.(record.SortPayload)
	if !ok {
		return a.Payload
	}
	out := map[string]any{"key": sp.Key}
	if sp.Options.Direction != "" {
		out["direction"] = string(sp.Options.Direction)
	}
	if sp.Options.Shallow {
		out["shallow"] = true
	}
	if sp.Options.MaxDepth > 0 {
		out["max_depth"] = sp.Options.MaxDepth
	}
	if sp.Options.Compare != nil {
		out["custom"] = true
	}
	return out
}
