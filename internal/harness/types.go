package harness

import "encoding/json"

// TraceEvent is one change observed during a run.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Step     int    `json:"step"`
	Key      string `json:"key"`
	Previous any    `json:"previous"`
	Value    any    `json:"value"`
	Version  int64  `json:"version"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds every change in emission order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state keyed by field.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a change to the trace, numbering it.
func (r *Result) AddTrace(step int, key string, previous, value any, version int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:      int64(len(r.Trace) + 1),
		Step:     step,
		Key:      key,
		Previous: previous,
		Value:    value,
		Version:  version,
	})
}

// TraceSnapshot is the golden-file form of a run.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []TraceEvent   `json:"trace"`
	FinalState   map[string]any `json:"final_state"`
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
