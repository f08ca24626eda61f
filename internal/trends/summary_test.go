package trends

import (
	"math"
	"testing"
	"time"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection(t *testing.T) {
	tests := []struct {
		name  string
		rates []float64
		want  models.TrendDirection
	}{
		{"improving", []float64{0.80, 0.85, 0.95}, models.TrendImproving},
		{"degrading", []float64{0.95, 0.90, 0.80}, models.TrendDegrading},
		{"flat", []float64{0.90, 0.90, 0.90}, models.TrendStable},
		{"single point", []float64{0.70}, models.TrendStable},
		{"within band", []float64{0.90, 0.91}, models.TrendStable},
		{"exactly band down", []float64{0.91, 0.90}, models.TrendStable},
		{"just past band", []float64{0.80, 0.8100001}, models.TrendImproving},
		{"just past band down", []float64{0.8100001, 0.80}, models.TrendDegrading},
		{"only last three count", []float64{0.10, 0.90, 0.90, 0.905}, models.TrendStable},
		{"two points", []float64{0.50, 0.60}, models.TrendImproving},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Direction(pointsWithRates(tt.rates...)))
		})
	}
}

func TestBuildTrendSummary_Empty(t *testing.T) {
	s := BuildTrendSummary("tone", nil)
	assert.Equal(t, "tone", s.EvalType)
	assert.Equal(t, models.TrendStable, s.TrendDirection)
	assert.Zero(t, s.LatestPassRate)
	assert.Empty(t, s.Points)
	assert.NotNil(t, s.PromptChanges)
}

func TestBuildTrendSummary_LatestPassRateMatchesLastPoint(t *testing.T) {
	points := pointsWithRates(0.81, 0.77, 0.93)
	s := BuildTrendSummary("routing", points)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, latest.PassRate, s.LatestPassRate)
	assert.InDelta(t, 0.93, s.LatestPassRate, 1e-9)
	assert.Len(t, s.Points, 3)
}

func TestBuildTrendSummary_CollectsPromptChanges(t *testing.T) {
	points := pointsWithRates(0.8, 0.8, 0.8, 0.8)
	points[0].PromptVersions = map[string]string{"system": "1", "router": "4"}
	points[1].PromptVersions = map[string]string{"system": "2", "router": "4"}
	points[2].PromptVersions = map[string]string{"router": "5"}
	points[3].PromptVersions = map[string]string{"system": "3", "router": "5"}

	s := BuildTrendSummary("quality", points)
	require.Len(t, s.PromptChanges, 2)

	assert.Equal(t, "system", s.PromptChanges[0].PromptName)
	assert.Equal(t, "1", s.PromptChanges[0].FromVersion)
	assert.Equal(t, "2", s.PromptChanges[0].ToVersion)
	assert.Equal(t, "run-2", s.PromptChanges[0].RunID)

	assert.Equal(t, "router", s.PromptChanges[1].PromptName)
	assert.Equal(t, "run-3", s.PromptChanges[1].RunID)
}

func TestDetectPromptChanges_SortedAndSkipsUnknown(t *testing.T) {
	prev := models.TrendPoint{PromptVersions: map[string]string{"b": "1", "a": "1", "c": "", "d": "2"}}
	cur := models.TrendPoint{RunID: "x", PromptVersions: map[string]string{"b": "2", "a": "3", "c": "1", "d": "2", "e": "1"}}

	changes := DetectPromptChanges(prev, cur)
	require.Len(t, changes, 2)
	assert.Equal(t, "a", changes[0].PromptName)
	assert.Equal(t, "b", changes[1].PromptName)
}

func TestNewTrendPoint(t *testing.T) {
	schema := projectconfig.EvalSchema{
		PassRateMetric: "recall_rate",
		ScoreMetric:    "average_recall_score",
		TotalMetric:    "total_cases",
		ErrorMetric:    "error_cases",
	}
	local := time.FixedZone("PDT", -7*3600)

	t.Run("reads schema columns", func(t *testing.T) {
		run := runstore.Run{
			RunID:     "r1",
			StartTime: time.Date(2026, 4, 1, 2, 0, 0, 0, local),
			Status:    runstore.RunStatusFinished,
			Metrics: map[string]float64{
				"recall_rate":          0.875,
				"average_recall_score": 3.9,
				"total_cases":          8,
				"error_cases":          0,
				"pass_rate":            0.1,
			},
			Params: map[string]string{"prompt.memory": "7", "model": "gpt", "prompt.": "x"},
		}
		p := NewTrendPoint(run, "memory", schema)
		assert.Equal(t, 0.875, p.PassRate)
		assert.Equal(t, 3.9, p.AvgScore)
		assert.Equal(t, 8, p.TotalCases)
		assert.Equal(t, models.EvalStatusComplete, p.EvalStatus)
		assert.Equal(t, map[string]string{"memory": "7"}, p.PromptVersions)
		assert.Equal(t, time.UTC, p.Timestamp.Location())
		assert.Equal(t, 9, p.Timestamp.Hour())
	})

	t.Run("missing and NaN default to zero", func(t *testing.T) {
		run := runstore.Run{
			RunID:   "r2",
			Status:  runstore.RunStatusFinished,
			Metrics: map[string]float64{"recall_rate": math.NaN(), "error_cases": 2},
		}
		p := NewTrendPoint(run, "memory", schema)
		assert.Zero(t, p.PassRate)
		assert.Zero(t, p.AvgScore)
		assert.Zero(t, p.TotalCases)
		assert.Equal(t, 2, p.ErrorCases)
		assert.Equal(t, models.EvalStatusPartial, p.EvalStatus)
		assert.Empty(t, p.PromptVersions)
	})

	t.Run("failed run is an error", func(t *testing.T) {
		run := runstore.Run{RunID: "r3", Status: runstore.RunStatusKilled}
		p := NewTrendPoint(run, "memory", schema)
		assert.Equal(t, models.EvalStatusError, p.EvalStatus)
	})
}
