package trends

import (
	"math"
	"sort"
	"strings"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/spboyer/evalgate/internal/statistics"
)

// PromptParamPrefix marks run params that record a prompt's version.
const PromptParamPrefix = "prompt."

// directionWindow is how many trailing points decide the trend direction.
const directionWindow = 3

// directionBand is the pass-rate movement treated as noise.
const directionBand = 0.01

// directionEpsilon absorbs float error so a move of exactly directionBand stays stable.
const directionEpsilon = 1e-9

// NewTrendPoint normalizes a run using the metric columns in schema. Missing and
// non-finite metrics read as 0.
func NewTrendPoint(run runstore.Run, evalType string, schema projectconfig.EvalSchema) models.TrendPoint {
	metric := func(name string) float64 {
		if name == "" {
			return 0
		}
		return statistics.Finite(run.Metrics[name])
	}
	count := func(name string) int {
		v := math.Round(metric(name))
		if v < 0 {
			return 0
		}
		return int(v)
	}

	errorCases := count(schema.ErrorMetric)
	return models.TrendPoint{
		RunID:          run.RunID,
		Timestamp:      run.StartTime.UTC(),
		EvalType:       evalType,
		PassRate:       metric(schema.PassRateMetric),
		AvgScore:       metric(schema.ScoreMetric),
		TotalCases:     count(schema.TotalMetric),
		ErrorCases:     errorCases,
		PromptVersions: PromptVersions(run.Params),
		EvalStatus:     models.DeriveEvalStatus(run.Failed(), errorCases),
	}
}

// PromptVersions extracts prompt name to version pairs from run params.
func PromptVersions(params map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range params {
		name, ok := strings.CutPrefix(k, PromptParamPrefix)
		if !ok || name == "" {
			continue
		}
		out[name] = v
	}
	return out
}

// BuildTrendSummary rolls a chronological point series up into a summary.
func BuildTrendSummary(evalType string, points []models.TrendPoint) models.TrendSummary {
	summary := models.TrendSummary{
		EvalType:       evalType,
		Points:         []models.TrendPoint{},
		TrendDirection: models.TrendStable,
		PromptChanges:  []models.PromptChange{},
	}
	if len(points) == 0 {
		return summary
	}

	summary.Points = points
	summary.LatestPassRate = points[len(points)-1].PassRate
	summary.TrendDirection = Direction(points)
	for i := 1; i < len(points); i++ {
		summary.PromptChanges = append(summary.PromptChanges, DetectPromptChanges(points[i-1], points[i])...)
	}
	return summary
}

// Direction compares the last point against the first of the trailing window.
func Direction(points []models.TrendPoint) models.TrendDirection {
	if len(points) < 2 {
		return models.TrendStable
	}
	window := points[max(0, len(points)-directionWindow):]
	delta := window[len(window)-1].PassRate - window[0].PassRate
	switch {
	case delta > directionBand+directionEpsilon:
		return models.TrendImproving
	case delta < -directionBand-directionEpsilon:
		return models.TrendDegrading
	default:
		return models.TrendStable
	}
}

// DetectPromptChanges lists prompts whose version differs between prev and cur.
// Prompts missing on either side are not reported.
func DetectPromptChanges(prev, cur models.TrendPoint) []models.PromptChange {
	var changes []models.PromptChange
	for name, to := range cur.PromptVersions {
		from, ok := prev.PromptVersions[name]
		if !ok || from == "" || to == "" || from == to {
			continue
		}
		changes = append(changes, models.PromptChange{
			Timestamp:   cur.Timestamp,
			RunID:       cur.RunID,
			PromptName:  name,
			FromVersion: from,
			ToVersion:   to,
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].PromptName < changes[j].PromptName
	})
	return changes
}
