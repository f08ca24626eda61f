// Package trends turns evaluation-run history into per-eval-type trend series.
package trends

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/runstore"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many eval types are queried at once.
const DefaultConcurrency = 4

// EvalGroup is a run group (experiment) and the eval type it holds.
type EvalGroup struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	EvalType string `json:"eval_type"`
}

// Series is one eval type's points, oldest first.
type Series struct {
	Group  EvalGroup
	Points []models.TrendPoint
}

// Aggregator reads run history from a run store. It holds no state between calls.
type Aggregator struct {
	store       runstore.Client
	cfg         *projectconfig.ProjectConfig
	logger      *slog.Logger
	concurrency int
}

// NewAggregator creates an Aggregator. A nil logger uses slog.Default().
func NewAggregator(store runstore.Client, cfg *projectconfig.ProjectConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:       store,
		cfg:         cfg,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
}

// Config returns the configuration the aggregator resolves eval types with.
func (a *Aggregator) Config() *projectconfig.ProjectConfig {
	return a.cfg
}

// DiscoverEvalGroups lists the experiments named after the configured base, either
// exactly or as "<base>-<suffix>", sorted by eval type. A run-store failure yields
// an empty list.
func (a *Aggregator) DiscoverEvalGroups(ctx context.Context) []EvalGroup {
	experiments, err := a.store.SearchExperiments(ctx)
	if err != nil {
		a.logger.Warn("eval group discovery failed", "error", err)
		return []EvalGroup{}
	}

	groups := []EvalGroup{}
	for _, exp := range experiments {
		evalType, ok := EvalTypeForExperiment(a.cfg, exp.Name)
		if !ok {
			continue
		}
		groups = append(groups, EvalGroup{ID: exp.ID, Name: exp.Name, EvalType: evalType})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].EvalType == groups[j].EvalType {
			return groups[i].Name < groups[j].Name
		}
		return groups[i].EvalType < groups[j].EvalType
	})
	return groups
}

// EvalTypeForExperiment maps an experiment name to its eval type. Names other
// than the base name or "<base>-<suffix>" do not belong to the product.
func EvalTypeForExperiment(cfg *projectconfig.ProjectConfig, name string) (string, bool) {
	base := cfg.ExperimentBase
	if name == base {
		return cfg.BaseEvalType, true
	}
	suffix, ok := strings.CutPrefix(name, base+"-")
	if !ok || suffix == "" {
		return "", false
	}
	return cfg.EvalTypeForSuffix(suffix), true
}

// GetTrendPoints returns the most recent limit terminal runs of a group as trend
// points, oldest first. A query failure yields an empty list.
func (a *Aggregator) GetTrendPoints(ctx context.Context, groupID, evalType string, limit int) []models.TrendPoint {
	runs, err := a.store.SearchRuns(ctx, runstore.RunQuery{
		ExperimentID: groupID,
		Statuses:     runstore.TerminalStatuses,
		NewestFirst:  true,
		Limit:        limit,
	})
	if err != nil {
		a.logger.Warn("trend query failed", "group", groupID, "eval_type", evalType, "error", err)
		return []models.TrendPoint{}
	}

	schema := a.cfg.Schema(evalType)
	points := make([]models.TrendPoint, 0, len(runs))
	for _, run := range runs {
		points = append(points, NewTrendPoint(run, evalType, schema))
	}
	slices.Reverse(points)
	return points
}

// CollectSeries fetches every discovered group's points concurrently. When
// evalTypes is non-empty only those eval types are fetched. The result is sorted
// by eval type.
func (a *Aggregator) CollectSeries(ctx context.Context, evalTypes []string, limit int) []Series {
	groups := a.DiscoverEvalGroups(ctx)
	if len(evalTypes) > 0 {
		groups = slices.DeleteFunc(groups, func(g EvalGroup) bool {
			return !slices.Contains(evalTypes, g.EvalType)
		})
	}

	series := make([]Series, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, group := range groups {
		g.Go(func() error {
			series[i] = Series{
				Group:  group,
				Points: a.GetTrendPoints(gctx, group.ID, group.EvalType, limit),
			}
			return nil
		})
	}
	_ = g.Wait()

	return series
}

// Summaries builds a TrendSummary for every discovered eval type.
func (a *Aggregator) Summaries(ctx context.Context, evalTypes []string, limit int) []models.TrendSummary {
	series := a.CollectSeries(ctx, evalTypes, limit)
	out := make([]models.TrendSummary, 0, len(series))
	for _, s := range series {
		out = append(out, BuildTrendSummary(s.Group.EvalType, s.Points))
	}
	return out
}

// LatestRunID returns the most recent run across every eval type.
func (a *Aggregator) LatestRunID(ctx context.Context) (string, bool) {
	var latest *models.TrendPoint
	for _, s := range a.CollectSeries(ctx, nil, 1) {
		for i := range s.Points {
			p := &s.Points[i]
			if latest == nil || p.Timestamp.After(latest.Timestamp) {
				latest = p
			}
		}
	}
	if latest == nil {
		return "", false
	}
	return latest.RunID, true
}
