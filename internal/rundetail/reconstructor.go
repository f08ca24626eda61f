// Package rundetail rebuilds the per-case results of a single evaluation run from
// its trace records, merging multi-turn sessions into one case each.
package rundetail

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/spboyer/evalgate/internal/trends"
)

// SessionMetadataKeys are the trace metadata keys checked for a session id, in order.
var SessionMetadataKeys = []string{"mlflow.trace.session", "session_id"}

// Reconstructor turns a run's traces into case results.
type Reconstructor struct {
	store  runstore.Client
	cfg    *projectconfig.ProjectConfig
	logger *slog.Logger
}

// NewReconstructor creates a Reconstructor. A nil logger uses slog.Default().
func NewReconstructor(store runstore.Client, cfg *projectconfig.ProjectConfig, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{store: store, cfg: cfg, logger: logger}
}

// GetRunDetail loads a run and reconstructs its cases. An empty evalType is
// inferred from the run's experiment. Unknown runs fail with an error wrapping
// runstore.ErrRunNotFound.
func (r *Reconstructor) GetRunDetail(ctx context.Context, runID, evalType string) (*models.RunDetail, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", runID, err)
	}
	if evalType == "" {
		evalType = r.inferEvalType(ctx, run.ExperimentID)
	}

	traces, err := r.store.FetchTraces(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetching traces for run %s: %w", runID, err)
	}

	primary := r.cfg.PrimaryAssessment(evalType)
	var cases []models.CaseResult
	if r.cfg.SessionGrouped(evalType) || hasSessions(traces) {
		cases = SessionCases(traces, primary)
	} else {
		cases = SingleTurnCases(traces, primary)
	}
	r.logger.Debug("run detail reconstructed",
		"run_id", runID, "eval_type", evalType, "traces", len(traces), "cases", len(cases))

	return &models.RunDetail{
		RunID:    run.RunID,
		EvalType: evalType,
		Params:   maps.Clone(run.Params),
		Metrics:  maps.Clone(run.Metrics),
		Cases:    cases,
	}, nil
}

func (r *Reconstructor) inferEvalType(ctx context.Context, experimentID string) string {
	experiments, err := r.store.SearchExperiments(ctx)
	if err != nil {
		r.logger.Warn("eval type lookup failed", "experiment_id", experimentID, "error", err)
		return r.cfg.BaseEvalType
	}
	for _, exp := range experiments {
		if exp.ID != experimentID {
			continue
		}
		if evalType, ok := trends.EvalTypeForExperiment(r.cfg, exp.Name); ok {
			return evalType
		}
	}
	return r.cfg.BaseEvalType
}

// SessionID returns the session a trace belongs to, or "".
func SessionID(t runstore.Trace) string {
	for _, k := range SessionMetadataKeys {
		if v := t.Metadata[k]; v != "" {
			return v
		}
	}
	return ""
}

func hasSessions(traces []runstore.Trace) bool {
	for _, t := range traces {
		if SessionID(t) != "" {
			return true
		}
	}
	return false
}

func byRequestTime(traces []runstore.Trace) []runstore.Trace {
	sorted := make([]runstore.Trace, len(traces))
	copy(sorted, traces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RequestTime.Before(sorted[j].RequestTime)
	})
	return sorted
}

// SingleTurnCases maps each trace to one case, in request order.
func SingleTurnCases(traces []runstore.Trace, primary string) []models.CaseResult {
	cases := make([]models.CaseResult, 0, len(traces))
	for _, t := range byRequestTime(traces) {
		c := models.CaseResult{
			CaseID:     t.TraceID,
			Turns:      1,
			Input:      ExtractInput(t.Request),
			Response:   ExtractResponse(t.Response),
			DurationMs: t.DurationMs,
		}
		for _, a := range t.Assessments {
			if a.Name == primary {
				applyPrimary(&c, a)
			} else {
				addExtra(&c, a)
			}
		}
		cases = append(cases, c)
	}
	return cases
}

// SessionCases merges the traces of each session into one case: the first turn's
// input, the last turn's response, the summed durations, and the primary
// assessment from whichever turn carries it. Traces without a session id become
// cases of their own. Cases are ordered by their first turn.
func SessionCases(traces []runstore.Trace, primary string) []models.CaseResult {
	var order []string
	groups := map[string][]runstore.Trace{}
	for _, t := range byRequestTime(traces) {
		key := SessionID(t)
		if key == "" {
			key = "trace:" + t.TraceID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	cases := make([]models.CaseResult, 0, len(order))
	for _, key := range order {
		turns := groups[key]
		first, last := turns[0], turns[len(turns)-1]

		c := models.CaseResult{
			CaseID:    first.TraceID,
			SessionID: SessionID(first),
			Turns:     len(turns),
			Input:     ExtractInput(first.Request),
			Response:  ExtractResponse(last.Response),
		}
		if c.SessionID != "" {
			c.CaseID = c.SessionID
		}

		var verdict *runstore.Assessment
		for _, t := range turns {
			c.DurationMs += t.DurationMs
			for i, a := range t.Assessments {
				if a.Name == primary {
					verdict = &t.Assessments[i]
					continue
				}
				addExtra(&c, a)
			}
		}
		if verdict != nil {
			applyPrimary(&c, *verdict)
		}
		cases = append(cases, c)
	}
	return cases
}
