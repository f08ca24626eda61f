package rundetail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var start = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

func trace(id string, offset time.Duration, session, request, response string, assessments ...runstore.Assessment) runstore.Trace {
	t := runstore.Trace{
		TraceID:     id,
		RequestTime: start.Add(offset),
		DurationMs:  100,
		Request:     request,
		Response:    response,
		Assessments: assessments,
	}
	if session != "" {
		t.Metadata = map[string]string{"mlflow.trace.session": session}
	}
	return t
}

func TestExtractInput(t *testing.T) {
	tests := []struct {
		name, raw, want string
	}{
		{"question first", `{"query":"q","question":"what time is it?"}`, "what time is it?"},
		{"query", `{"query":"remind me","user_message":"x"}`, "remind me"},
		{"user message", `{"user_message":"hello"}`, "hello"},
		{"nested inputs", `{"inputs":{"question":"nested"}}`, "nested"},
		{"bare json string", `"plain"`, "plain"},
		{"non json", `just text`, "just text"},
		{"unknown keys", `{"prompt":"x"}`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractInput(tt.raw))
		})
	}
}

func TestExtractResponse(t *testing.T) {
	tests := []struct {
		name, raw, want string
	}{
		{"response key", `{"response":"Sure."}`, "Sure."},
		{"output key", `{"output":"Done"}`, "Done"},
		{"content key", `{"content":"Hi"}`, "Hi"},
		{"nested", `{"response":{"content":"deep"}}`, "deep"},
		{"outputs wrapper", `{"outputs":{"response":"wrapped"}}`, "wrapped"},
		{"bare string", `"text"`, "text"},
		{"non json", `raw reply`, "raw reply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractResponse(tt.raw))
		})
	}
}

func TestApplyPrimary(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		wantScore  float64
		wantPassed bool
		wantRating string
	}{
		{"poor", "poor", 1, false, "poor"},
		{"adequate trimmed", "  Adequate ", 3, true, "adequate"},
		{"good", "GOOD", 4, true, "good"},
		{"excellent", "excellent", 5, true, "excellent"},
		{"bool true", true, 1, true, ""},
		{"bool false", false, 0, false, ""},
		{"numeric pass", 3.0, 3, true, ""},
		{"numeric fail", 2.5, 2.5, false, ""},
		{"int", 4, 4, true, ""},
		{"yes", "yes", 1, true, ""},
		{"numeric string", "4.5", 4.5, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c models.CaseResult
			applyPrimary(&c, runstore.Assessment{Name: "quality", Value: tt.value, Rationale: "because"})
			require.NotNil(t, c.Score)
			require.NotNil(t, c.Passed)
			assert.Equal(t, tt.wantScore, *c.Score)
			assert.Equal(t, tt.wantPassed, *c.Passed)
			assert.Equal(t, tt.wantRating, c.Rating)
			assert.Equal(t, "because", c.Justification)
		})
	}

	t.Run("unknown label has no verdict", func(t *testing.T) {
		var c models.CaseResult
		applyPrimary(&c, runstore.Assessment{Value: "mediocre"})
		assert.Equal(t, "mediocre", c.Rating)
		assert.Nil(t, c.Score)
		assert.Nil(t, c.Passed)
	})
}

func TestSingleTurnCases(t *testing.T) {
	traces := []runstore.Trace{
		trace("t2", time.Minute, "", `{"query":"second"}`, `{"response":"two"}`,
			runstore.Assessment{Name: "quality", Value: "good", Rationale: "clear"},
			runstore.Assessment{Name: "safety", Value: true, Rationale: "no issues"}),
		trace("t1", 0, "", `{"question":"first"}`, `"one"`),
	}

	cases := SingleTurnCases(traces, "quality")
	require.Len(t, cases, 2)

	assert.Equal(t, "t1", cases[0].CaseID)
	assert.Equal(t, "first", cases[0].Input)
	assert.Equal(t, "one", cases[0].Response)
	assert.Nil(t, cases[0].Passed)

	c := cases[1]
	assert.Equal(t, "second", c.Input)
	assert.Equal(t, "two", c.Response)
	assert.Equal(t, "good", c.Rating)
	assert.Equal(t, 4.0, *c.Score)
	assert.True(t, *c.Passed)
	assert.Equal(t, "clear", c.Justification)
	assert.Equal(t, 1, c.Turns)
	require.Contains(t, c.Extras, "safety")
	assert.Equal(t, true, c.Extras["safety"].Value)
	assert.Equal(t, "no issues", c.Extras["safety"].Rationale)
}

func TestSessionCases(t *testing.T) {
	traces := []runstore.Trace{
		trace("s1-t3", 2*time.Minute, "s1", `{"user_message":"and tomorrow?"}`, `{"response":"Rain tomorrow."}`,
			runstore.Assessment{Name: "coherence", Value: 4.0}),
		trace("s1-t1", 0, "s1", `{"user_message":"weather today?"}`, `{"response":"Sunny."}`),
		trace("s2-t1", time.Minute, "s2", `{"user_message":"set a timer"}`, `{"response":"Done."}`,
			runstore.Assessment{Name: "conversation_quality", Value: "poor", Rationale: "ignored duration"}),
		trace("s1-t2", time.Minute, "s1", `{"user_message":"in Paris"}`, `{"response":"Sunny in Paris."}`,
			runstore.Assessment{Name: "conversation_quality", Value: "excellent", Rationale: "kept context"}),
		trace("lone", 3*time.Minute, "", `{"question":"solo"}`, `"ok"`),
	}

	cases := SessionCases(traces, "conversation_quality")
	require.Len(t, cases, 3)

	s1 := cases[0]
	assert.Equal(t, "s1", s1.CaseID)
	assert.Equal(t, "s1", s1.SessionID)
	assert.Equal(t, 3, s1.Turns)
	assert.Equal(t, "weather today?", s1.Input)
	assert.Equal(t, "Rain tomorrow.", s1.Response)
	assert.Equal(t, int64(300), s1.DurationMs)
	assert.Equal(t, "excellent", s1.Rating, "verdict comes from the middle turn")
	assert.True(t, *s1.Passed)
	assert.Equal(t, "kept context", s1.Justification)
	assert.Contains(t, s1.Extras, "coherence")

	s2 := cases[1]
	assert.Equal(t, "s2", s2.SessionID)
	assert.False(t, *s2.Passed)

	lone := cases[2]
	assert.Equal(t, "lone", lone.CaseID)
	assert.Empty(t, lone.SessionID)
	assert.Equal(t, 1, lone.Turns)
}

func TestGetRunDetail(t *testing.T) {
	ctx := context.Background()
	store := runstore.NewMemoryStore()
	store.AddExperiment("7", "assistant-evals-multiturn")
	store.AddRun(runstore.Run{
		RunID:        "run-1",
		ExperimentID: "7",
		Status:       runstore.RunStatusFinished,
		Metrics:      map[string]float64{"conversation_success_rate": 0.5},
		Params:       map[string]string{"prompt.system": "4"},
	},
		trace("a", 0, "", `{"user_message":"hi"}`, `"hello"`,
			runstore.Assessment{Name: "conversation_quality", Value: "good"}),
		trace("b", time.Second, "", `{"user_message":"bye"}`, `"see you"`),
	)

	r := NewReconstructor(store, projectconfig.New(), nil)
	detail, err := r.GetRunDetail(ctx, "run-1", "")
	require.NoError(t, err)

	assert.Equal(t, "multi_turn", detail.EvalType)
	assert.Equal(t, "4", detail.Params["prompt.system"])
	assert.Equal(t, 0.5, detail.Metrics["conversation_success_rate"])
	require.Len(t, detail.Cases, 2, "session-grouped type without session ids keeps one case per trace")
	passed, assessed := detail.PassCount()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, assessed)
}

func TestGetRunDetail_NotFound(t *testing.T) {
	r := NewReconstructor(runstore.NewMemoryStore(), projectconfig.New(), nil)
	_, err := r.GetRunDetail(context.Background(), "nope", "tone")
	require.ErrorIs(t, err, runstore.ErrRunNotFound)
}

func TestGetRunDetail_TraceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := runstore.NewMockClient(ctrl)
	client.EXPECT().GetRun(gomock.Any(), "r1").Return(&runstore.Run{RunID: "r1"}, nil)
	client.EXPECT().FetchTraces(gomock.Any(), "r1").Return(nil, errors.New("timeout"))

	r := NewReconstructor(client, projectconfig.New(), nil)
	_, err := r.GetRunDetail(context.Background(), "r1", "tone")
	require.Error(t, err)
	assert.NotErrorIs(t, err, runstore.ErrRunNotFound)
}
