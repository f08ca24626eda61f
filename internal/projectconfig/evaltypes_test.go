package projectconfig

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_BuiltinAndDefault(t *testing.T) {
	cfg := New()

	memory := cfg.Schema("memory")
	assert.Equal(t, "recall_rate", memory.PassRateMetric)
	assert.Equal(t, "average_recall_score", memory.ScoreMetric)
	assert.Equal(t, DefaultEvalSchema.TotalMetric, memory.TotalMetric)

	assert.Equal(t, DefaultEvalSchema, cfg.Schema("brand-new-type"))
}

func TestThreshold_PerTypeOverride(t *testing.T) {
	cfg := New()
	assert.Equal(t, 0.80, cfg.Threshold("tone"))
	assert.Equal(t, 0.95, cfg.Threshold("security"))

	cfg.EvalTypes["security"] = EvalTypeConfig{Threshold: floatPtr(0.5)}
	assert.Equal(t, 0.5, cfg.Threshold("security"))
	assert.Equal(t, "resisted", cfg.PrimaryAssessment("security"), "override keeps unrelated built-in fields")
}

func TestEvalTypeForSuffix_PassesUnknownThrough(t *testing.T) {
	cfg := New()
	assert.Equal(t, "security", cfg.EvalTypeForSuffix("jailbreak"))
	assert.Equal(t, "calendar", cfg.EvalTypeForSuffix("calendar"))
}

func TestSessionGrouped(t *testing.T) {
	cfg := New()
	assert.True(t, cfg.SessionGrouped("multi_turn"))
	assert.False(t, cfg.SessionGrouped("tone"))
}

func TestSuiteEvalTypes(t *testing.T) {
	cfg := New()

	all, err := cfg.SuiteEvalTypes("")
	require.NoError(t, err)
	assert.Nil(t, all)

	full, err := cfg.SuiteEvalTypes("FULL")
	require.NoError(t, err)
	assert.Contains(t, full, "multi_turn")

	_, err = cfg.SuiteEvalTypes("nightly")
	require.Error(t, err)
}

func TestKnownEvalTypes_IsSortedAndIncludesBase(t *testing.T) {
	known := New().KnownEvalTypes()
	assert.True(t, slices.IsSorted(known))
	assert.Contains(t, known, "quality")
	assert.Contains(t, known, "multi_turn")
}
