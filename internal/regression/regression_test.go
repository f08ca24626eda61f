package regression

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/spboyer/evalgate/internal/trends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeVerdict(t *testing.T) {
	tests := []struct {
		name                         string
		current, baseline, threshold float64
		want                         models.Verdict
	}{
		{"below threshold", 0.79, 0.90, 0.80, models.VerdictRegression},
		{"large drop above threshold", 0.82, 0.95, 0.80, models.VerdictWarning},
		{"gain", 0.95, 0.85, 0.80, models.VerdictImproved},
		{"unchanged", 0.90, 0.90, 0.80, models.VerdictPass},
		{"threshold is inclusive", 0.80, 0.90, 0.80, models.VerdictWarning},
		{"below threshold despite gain", 0.70, 0.50, 0.80, models.VerdictRegression},
		{"small drop", 0.88, 0.90, 0.80, models.VerdictPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeVerdict(tt.current, tt.baseline, tt.threshold))
		})
	}
}

func TestComputeVerdict_Monotonic(t *testing.T) {
	for _, baseline := range []float64{0.5, 0.8, 0.9, 1.0} {
		prev := ComputeVerdict(1.0, baseline, 0.8)
		for i := 100; i >= 0; i-- {
			current := float64(i) / 100
			v := ComputeVerdict(current, baseline, 0.8)
			assert.GreaterOrEqual(t, v.Severity(), prev.Severity(),
				"baseline %.2f: verdict improved from %s to %s as current fell to %.2f", baseline, prev, v, current)
			prev = v
		}
	}
}

func series(statuses ...models.EvalStatus) []models.TrendPoint {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.TrendPoint, len(statuses))
	for i, s := range statuses {
		points[i] = models.TrendPoint{
			RunID:      fmt.Sprintf("r%d", i+1),
			Timestamp:  start.Add(time.Duration(i) * time.Hour),
			PassRate:   0.9,
			EvalStatus: s,
		}
	}
	return points
}

func TestGetBaselineRun(t *testing.T) {
	c, p, e := models.EvalStatusComplete, models.EvalStatusPartial, models.EvalStatusError
	points := series(c, p, c, e, c)

	t.Run("first complete point has none", func(t *testing.T) {
		_, ok := GetBaselineRun(points, "r1")
		assert.False(t, ok)
	})
	t.Run("skips partial and error points", func(t *testing.T) {
		b, ok := GetBaselineRun(points, "r5")
		require.True(t, ok)
		assert.Equal(t, "r3", b.RunID)

		b, ok = GetBaselineRun(points, "r3")
		require.True(t, ok)
		assert.Equal(t, "r1", b.RunID)
	})
	t.Run("unknown run falls back to last complete", func(t *testing.T) {
		b, ok := GetBaselineRun(points, "r2")
		require.True(t, ok)
		assert.Equal(t, "r5", b.RunID)
	})
	t.Run("default is second to last complete", func(t *testing.T) {
		b, ok := GetBaselineRun(points, "")
		require.True(t, ok)
		assert.Equal(t, "r3", b.RunID)
	})
	t.Run("fewer than two complete", func(t *testing.T) {
		_, ok := GetBaselineRun(series(p, c, e), "")
		assert.False(t, ok)
		_, ok = GetBaselineRun(nil, "r1")
		assert.False(t, ok)
	})
}

func TestCompareRuns(t *testing.T) {
	baseline := models.TrendPoint{RunID: "b", EvalType: "tone", PassRate: 0.85,
		PromptVersions: map[string]string{"system": "3"}}
	current := models.TrendPoint{RunID: "c", EvalType: "tone", PassRate: 0.95,
		PromptVersions: map[string]string{"system": "4"}}

	r := CompareRuns(baseline, current, 0.8)
	assert.Equal(t, "tone", r.EvalType)
	assert.Equal(t, "b", r.BaselineRunID)
	assert.Equal(t, "c", r.CurrentRunID)
	assert.Equal(t, 10.0, r.DeltaPP)
	assert.InDelta(t, 0.666667, r.NormalizedGain, 1e-9)
	assert.Equal(t, models.VerdictImproved, r.Verdict)
	require.Len(t, r.ChangedPrompts, 1)
	assert.Equal(t, "3", r.ChangedPrompts[0].FromVersion)
	assert.Equal(t, "4", r.ChangedPrompts[0].ToVersion)
}

func addRun(store *runstore.FileStore, id, exp string, hour int, passRate float64, status runstore.RunStatus, errors float64) {
	store.AddRun(runstore.Run{
		RunID:        id,
		ExperimentID: exp,
		StartTime:    time.Date(2026, 4, 1, hour, 0, 0, 0, time.UTC),
		Status:       status,
		Metrics:      map[string]float64{"pass_rate": passRate, "error_cases": errors},
	})
}

func newDetector() *Detector {
	store := runstore.NewMemoryStore()
	store.AddExperiment("1", "assistant-evals")
	store.AddExperiment("2", "assistant-evals-tone")
	store.AddExperiment("3", "assistant-evals-memory")

	addRun(store, "q1", "1", 1, 0.90, runstore.RunStatusFinished, 0)
	addRun(store, "q2", "1", 2, 0.95, runstore.RunStatusFinished, 0)
	addRun(store, "q3", "1", 3, 0.60, runstore.RunStatusFinished, 2)
	addRun(store, "q4", "1", 4, 0.70, runstore.RunStatusFinished, 0)

	addRun(store, "t1", "2", 1, 0.90, runstore.RunStatusFinished, 0)
	addRun(store, "t2", "2", 2, 0.91, runstore.RunStatusFailed, 0)

	addRun(store, "m1", "3", 1, 0.88, runstore.RunStatusFinished, 0)
	addRun(store, "m2", "3", 2, 0.90, runstore.RunStatusFinished, 0)

	agg := trends.NewAggregator(store, projectconfig.New(), nil)
	return NewDetector(agg, nil)
}

func TestCheckAllRegressions(t *testing.T) {
	check := newDetector().CheckAllRegressions(context.Background(), nil, "", 20)

	require.Len(t, check.Reports, 2)
	assert.Equal(t, []string{"tone"}, check.InsufficientData)

	memory := check.Reports[0]
	assert.Equal(t, "memory", memory.EvalType)
	assert.Equal(t, models.VerdictImproved, memory.Verdict)

	quality := check.Reports[1]
	assert.Equal(t, "q2", quality.BaselineRunID, "partial run is skipped")
	assert.Equal(t, "q4", quality.CurrentRunID)
	assert.Equal(t, models.VerdictRegression, quality.Verdict)
	assert.True(t, check.HasRegression())
}

func TestCheckAllRegressions_SpecificRun(t *testing.T) {
	check := newDetector().CheckAllRegressions(context.Background(), []string{"quality"}, "q2", 20)

	require.Len(t, check.Reports, 1)
	r := check.Reports[0]
	assert.Equal(t, "q1", r.BaselineRunID)
	assert.Equal(t, "q2", r.CurrentRunID)
	assert.Equal(t, models.VerdictImproved, r.Verdict)
	assert.False(t, check.HasRegression())
	assert.Empty(t, check.InsufficientData)
}

func TestCheckAllRegressions_SpecificRunSkipsOtherEvalTypes(t *testing.T) {
	check := newDetector().CheckAllRegressions(context.Background(), nil, "q2", 20)

	require.Len(t, check.Reports, 1)
	assert.Equal(t, "quality", check.Reports[0].EvalType)
	assert.Equal(t, "q2", check.Reports[0].CurrentRunID)
	assert.Empty(t, check.InsufficientData, "tone does not hold q2")
	assert.False(t, check.HasRegression(), "later q4 regression is not reported")
}

func TestCheckAllRegressions_SpecificRunIncomplete(t *testing.T) {
	check := newDetector().CheckAllRegressions(context.Background(), nil, "t2", 20)

	assert.Empty(t, check.Reports)
	assert.Equal(t, []string{"tone"}, check.InsufficientData)
}
