package harness

// Outcome recorded for a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one executed flow step.
type TraceEvent struct {
	// Step is the 1-based position of the step in the flow.
	Step int `json:"step"`

	Op string `json:"op"`

	// Args holds the step inputs as written in the scenario
	// (users by name, trades by label).
	Args map[string]any `json:"args"`

	// Outcome is OutcomeOK or the engine error code.
	Outcome string `json:"outcome"`

	// Result holds the step's return values. Empty on error.
	Result map[string]any `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final snapshot: "users", "trades" and "available".
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event for the step at position step.
func (r *Result) AddTrace(step int, op string, args map[string]any, outcome string, result map[string]any) {
	if result == nil {
		result = map[string]any{}
	}
	r.Trace = append(r.Trace, TraceEvent{
		Step:    step,
		Op:      op,
		Args:    args,
		Outcome: outcome,
		Result:  result,
	})
}
