package models

import "time"

// EvalStatus is the run-level health of a single evaluation run.
type EvalStatus string

const (
	EvalStatusComplete EvalStatus = "complete"
	EvalStatusPartial  EvalStatus = "partial"
	EvalStatusError    EvalStatus = "error"
)

// DeriveEvalStatus maps a run's failure flag and error-case count onto an EvalStatus.
// A failed run is always an error; any errored case makes the run partial.
func DeriveEvalStatus(runFailed bool, errorCases int) EvalStatus {
	switch {
	case runFailed:
		return EvalStatusError
	case errorCases > 0:
		return EvalStatusPartial
	default:
		return EvalStatusComplete
	}
}

// TrendPoint is one evaluation run, normalized. It is built from a single run record
// and never modified afterwards.
type TrendPoint struct {
	RunID          string            `json:"run_id"`
	Timestamp      time.Time         `json:"timestamp"`
	EvalType       string            `json:"eval_type"`
	PassRate       float64           `json:"pass_rate"`
	AvgScore       float64           `json:"avg_score"`
	TotalCases     int               `json:"total_cases"`
	ErrorCases     int               `json:"error_cases"`
	PromptVersions map[string]string `json:"prompt_versions"`
	EvalStatus     EvalStatus        `json:"eval_status"`
}

// IsComplete reports whether the point can serve as a baseline or a current run.
func (p TrendPoint) IsComplete() bool {
	return p.EvalStatus == EvalStatusComplete
}

// CompletePoints returns the complete points of a series, preserving order.
func CompletePoints(points []TrendPoint) []TrendPoint {
	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		if p.IsComplete() {
			out = append(out, p)
		}
	}
	return out
}

// PromptChange is a version transition for one prompt between two adjacent points.
type PromptChange struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	PromptName  string    `json:"prompt_name"`
	FromVersion string    `json:"from_version"`
	ToVersion   string    `json:"to_version"`
}
