// Package regression compares the latest complete run of each eval type against
// a baseline run and assigns a verdict.
package regression

import (
	"context"
	"log/slog"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/statistics"
	"github.com/spboyer/evalgate/internal/trends"
)

// WarningDropPP is the pass-rate drop, in percentage points, that earns a WARNING
// even when the threshold still holds.
const WarningDropPP = -10.0

// GetBaselineRun picks the baseline for currentRunID among the complete points of
// a chronological series. With an empty currentRunID the baseline is the
// second-to-last complete point. An unknown run ID falls back to the last complete
// point. The first complete point has no baseline.
func GetBaselineRun(points []models.TrendPoint, currentRunID string) (models.TrendPoint, bool) {
	complete := models.CompletePoints(points)
	if currentRunID == "" {
		if len(complete) < 2 {
			return models.TrendPoint{}, false
		}
		return complete[len(complete)-2], true
	}

	for i, p := range complete {
		if p.RunID != currentRunID {
			continue
		}
		if i == 0 {
			return models.TrendPoint{}, false
		}
		return complete[i-1], true
	}

	if len(complete) == 0 {
		return models.TrendPoint{}, false
	}
	return complete[len(complete)-1], true
}

// ComputeVerdict applies, in order: below threshold is a REGRESSION, a drop of ten
// points or more is a WARNING, any gain is IMPROVED, anything else is a PASS.
func ComputeVerdict(current, baseline, threshold float64) models.Verdict {
	delta := statistics.DeltaPP(baseline, current)
	switch {
	case current < threshold:
		return models.VerdictRegression
	case delta <= WarningDropPP:
		return models.VerdictWarning
	case delta > 0:
		return models.VerdictImproved
	default:
		return models.VerdictPass
	}
}

// CompareRuns builds the report for one baseline/current pair.
func CompareRuns(baseline, current models.TrendPoint, threshold float64) models.RegressionReport {
	changes := trends.DetectPromptChanges(baseline, current)
	if changes == nil {
		changes = []models.PromptChange{}
	}
	return models.RegressionReport{
		EvalType:         current.EvalType,
		BaselineRunID:    baseline.RunID,
		CurrentRunID:     current.RunID,
		BaselinePassRate: baseline.PassRate,
		CurrentPassRate:  current.PassRate,
		DeltaPP:          statistics.DeltaPP(baseline.PassRate, current.PassRate),
		NormalizedGain:   statistics.Round(statistics.NormalizedGain(baseline.PassRate, current.PassRate), 6),
		Threshold:        threshold,
		Verdict:          ComputeVerdict(current.PassRate, baseline.PassRate, threshold),
		ChangedPrompts:   changes,
	}
}

// Detector runs regression checks over every discovered eval type.
type Detector struct {
	agg    *trends.Aggregator
	logger *slog.Logger
}

// NewDetector creates a Detector. A nil logger uses slog.Default().
func NewDetector(agg *trends.Aggregator, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{agg: agg, logger: logger}
}

// CheckAllRegressions reports on every eval type, optionally restricted to
// evalTypes. With a runID, only eval types holding that run are checked, with
// that run as the current point; every other eval type is skipped.
func (d *Detector) CheckAllRegressions(ctx context.Context, evalTypes []string, runID string, limit int) models.RegressionCheck {
	check := models.RegressionCheck{
		Reports:          []models.RegressionReport{},
		InsufficientData: []string{},
	}
	cfg := d.agg.Config()

	for _, s := range d.agg.CollectSeries(ctx, evalTypes, limit) {
		if runID != "" {
			if _, ok := findPoint(s.Points, runID); !ok {
				d.logger.Debug("run not in eval type, skipping", "eval_type", s.Group.EvalType, "run_id", runID)
				continue
			}
		}
		complete := models.CompletePoints(s.Points)
		if len(complete) < 2 {
			d.logger.Debug("insufficient history for regression check",
				"eval_type", s.Group.EvalType, "complete_runs", len(complete))
			check.InsufficientData = append(check.InsufficientData, s.Group.EvalType)
			continue
		}

		current := complete[len(complete)-1]
		if runID != "" {
			p, ok := findPoint(complete, runID)
			if !ok {
				check.InsufficientData = append(check.InsufficientData, s.Group.EvalType)
				continue
			}
			current = p
		}
		baseline, ok := GetBaselineRun(complete, current.RunID)
		if !ok {
			check.InsufficientData = append(check.InsufficientData, s.Group.EvalType)
			continue
		}

		check.Reports = append(check.Reports, CompareRuns(baseline, current, cfg.Threshold(s.Group.EvalType)))
	}
	return check
}

func findPoint(points []models.TrendPoint, runID string) (models.TrendPoint, bool) {
	if runID == "" {
		return models.TrendPoint{}, false
	}
	for _, p := range points {
		if p.RunID == runID {
			return p, true
		}
	}
	return models.TrendPoint{}, false
}
