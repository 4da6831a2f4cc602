package harness

import "github.com/roach88/tandem/internal/ir"

// Step sources recorded in the trace.
const (
	SourceDispatch = "dispatch"
	SourceTrigger  = "trigger"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int      `json:"step"`
	Source  string   `json:"source"`
	Kind    string   `json:"kind"`
	Args    ir.Array `json:"args,omitempty"`
	State   ir.Value `json:"state"`
	Records int      `json:"records"` // log entries after the step, @@INIT included
	Error   string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the tree snapshot after the last step.
	State ir.Value `json:"state"`

	// SessionID is the persistence session used, if any.
	SessionID string `json:"session_id,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a step to the trace.
func (r *Result) AddEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
