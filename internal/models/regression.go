package models

// Verdict is the outcome of comparing a current run against its baseline.
type Verdict string

const (
	VerdictRegression Verdict = "REGRESSION"
	VerdictWarning    Verdict = "WARNING"
	VerdictImproved   Verdict = "IMPROVED"
	VerdictPass       Verdict = "PASS"
)

// Severity orders verdicts from best (0) to worst (3).
func (v Verdict) Severity() int {
	switch v {
	case VerdictImproved:
		return 0
	case VerdictPass:
		return 1
	case VerdictWarning:
		return 2
	case VerdictRegression:
		return 3
	default:
		return -1
	}
}

// RegressionReport compares one baseline point against one current point.
type RegressionReport struct {
	EvalType         string         `json:"eval_type"`
	BaselineRunID    string         `json:"baseline_run_id"`
	CurrentRunID     string         `json:"current_run_id"`
	BaselinePassRate float64        `json:"baseline_pass_rate"`
	CurrentPassRate  float64        `json:"current_pass_rate"`
	DeltaPP          float64        `json:"delta_pp"`
	NormalizedGain   float64        `json:"normalized_gain"`
	Threshold        float64        `json:"threshold"`
	Verdict          Verdict        `json:"verdict"`
	ChangedPrompts   []PromptChange `json:"changed_prompts"`
}

// RegressionCheck is the result of checking every eval type. Eval types with fewer
// than two complete runs are listed in InsufficientData rather than reported.
type RegressionCheck struct {
	Reports          []RegressionReport `json:"reports"`
	InsufficientData []string           `json:"insufficient_data"`
}

// HasRegression reports whether any report carries a REGRESSION verdict.
func (c RegressionCheck) HasRegression() bool {
	for _, r := range c.Reports {
		if r.Verdict == VerdictRegression {
			return true
		}
	}
	return false
}
