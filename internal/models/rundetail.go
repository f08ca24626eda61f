package models

// RunDetail is the drill-down view of one evaluation run.
type RunDetail struct {
	RunID    string             `json:"run_id"`
	EvalType string             `json:"eval_type"`
	Params   map[string]string  `json:"params"`
	Metrics  map[string]float64 `json:"metrics"`
	Cases    []CaseResult       `json:"cases"`
}

// CaseResult is one reconstructed evaluation case. Multi-turn cases carry the
// session id and the number of traces that were merged into them.
type CaseResult struct {
	CaseID        string                     `json:"case_id"`
	SessionID     string                     `json:"session_id,omitempty"`
	Turns         int                        `json:"turns"`
	Input         string                     `json:"input"`
	Response      string                     `json:"response"`
	Rating        string                     `json:"rating,omitempty"`
	Score         *float64                   `json:"score,omitempty"`
	Passed        *bool                      `json:"passed,omitempty"`
	Justification string                     `json:"justification,omitempty"`
	DurationMs    int64                      `json:"duration_ms"`
	Extras        map[string]AssessmentExtra `json:"extras,omitempty"`
}

// AssessmentExtra preserves a non-primary judge signal verbatim.
type AssessmentExtra struct {
	Value     any    `json:"value"`
	Rationale string `json:"rationale,omitempty"`
}

// PassCount returns how many cases passed, and how many were assessed at all.
func (d *RunDetail) PassCount() (passed, assessed int) {
	for _, c := range d.Cases {
		if c.Passed == nil {
			continue
		}
		assessed++
		if *c.Passed {
			passed++
		}
	}
	return passed, assessed
}
