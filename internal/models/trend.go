package models

// TrendDirection summarizes the recent movement of a pass-rate series.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDegrading TrendDirection = "degrading"
)

// TrendSummary is the per-eval-type rollup of a point series.
type TrendSummary struct {
	EvalType       string         `json:"eval_type"`
	Points         []TrendPoint   `json:"points"`
	LatestPassRate float64        `json:"latest_pass_rate"`
	TrendDirection TrendDirection `json:"trend_direction"`
	PromptChanges  []PromptChange `json:"prompt_changes"`
}

// Latest returns the newest point, or false when the summary is empty.
func (s TrendSummary) Latest() (TrendPoint, bool) {
	if len(s.Points) == 0 {
		return TrendPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
