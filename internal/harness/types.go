package harness

import "github.com/roach88/normativ/internal/store"

// TraceEvent records one executed step for assertions and golden comparison.
type TraceEvent struct {
	Step      int    `json:"step"`
	Op        string `json:"op"` // "compose" or "delete"
	RequestID string `json:"request_id"`

	// Result is "ok" or the engine error code.
	Result string `json:"result"`
	Field  string `json:"field,omitempty"`

	// ParameterSet lists the compose step's parameters, sorted and deduplicated.
	ParameterSet []string       `json:"parameter_set,omitempty"`
	Outcomes     []OutcomeEvent `json:"outcomes,omitempty"`

	NormativeID int64               `json:"normative_id,omitempty"`
	Deleted     *store.DeleteCounts `json:"deleted,omitempty"`
}

// OutcomeEvent is one compose entry's outcome with the rank by name.
type OutcomeEvent struct {
	Entry       int    `json:"entry"`
	Kind        string `json:"kind"`
	Rank        string `json:"rank,omitempty"`
	RankID      int64  `json:"rank_id,omitempty"` // set only for ranks outside the catalog
	NormativeID int64  `json:"normative_id,omitempty"`
	Value       string `json:"value,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expectations and assertions hold.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
