package models

// PromotionEvalCheck is the gate decision for one eval type.
type PromotionEvalCheck struct {
	EvalType  string  `json:"eval_type"`
	PassRate  float64 `json:"pass_rate"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
	RunID     string  `json:"run_id"`
}

// Shortfall is how far below the threshold the pass rate sits, or 0 when passing.
func (c PromotionEvalCheck) Shortfall() float64 {
	if c.PassRate >= c.Threshold {
		return 0
	}
	return c.Threshold - c.PassRate
}

// PromotionResult aggregates every eval type's check into one allow/block decision.
type PromotionResult struct {
	Allowed          bool                 `json:"allowed"`
	PromptName       string               `json:"prompt_name"`
	Version          int                  `json:"version"`
	FromAlias        string               `json:"from_alias"`
	ToAlias          string               `json:"to_alias"`
	Checks           []PromotionEvalCheck `json:"checks"`
	BlockingEvals    []string             `json:"blocking_evals"`
	JustifyingRunIDs []string             `json:"justifying_run_ids"`
}
