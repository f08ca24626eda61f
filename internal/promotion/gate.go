// Package promotion gates prompt alias promotion on every eval type's latest
// complete run, executes promotions, and resolves rollback targets.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spboyer/evalgate/internal/audit"
	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/registry"
	"github.com/spboyer/evalgate/internal/trends"
)

// ErrPromotionBlocked is returned when executing a blocked promotion without Force.
var ErrPromotionBlocked = errors.New("promotion blocked by failing eval types")

// ForcedReasonPrefix starts the audit reason of a promotion that bypassed the gate.
const ForcedReasonPrefix = "forced:"

// Gate checks and performs alias promotions and rollbacks.
type Gate struct {
	agg      *trends.Aggregator
	registry registry.Registry
	audit    *audit.Logger
	logger   *slog.Logger
	swap     registry.SwapOptions
}

// NewGate creates a Gate. A nil logger uses slog.Default().
func NewGate(agg *trends.Aggregator, reg registry.Registry, auditLogger *audit.Logger, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		agg:      agg,
		registry: reg,
		audit:    auditLogger,
		logger:   logger,
		swap:     registry.DefaultSwapOptions,
	}
}

// CheckPromotionGate decides whether version of promptName may move from
// fromAlias to toAlias. A zero version means the version currently behind
// fromAlias. Eval types without a complete run are left out of the decision.
func (g *Gate) CheckPromotionGate(ctx context.Context, promptName, fromAlias, toAlias string, version int) (models.PromotionResult, error) {
	if version == 0 {
		v, err := registry.CurrentVersion(ctx, g.registry, promptName, fromAlias)
		if err != nil {
			return models.PromotionResult{}, fmt.Errorf("resolving %s@%s: %w", promptName, fromAlias, err)
		}
		version = v
	}

	result := models.PromotionResult{
		Allowed:          true,
		PromptName:       promptName,
		Version:          version,
		FromAlias:        fromAlias,
		ToAlias:          toAlias,
		Checks:           []models.PromotionEvalCheck{},
		BlockingEvals:    []string{},
		JustifyingRunIDs: []string{},
	}

	cfg := g.agg.Config()
	for _, s := range g.agg.CollectSeries(ctx, nil, cfg.TrendLimit) {
		complete := models.CompletePoints(s.Points)
		if len(complete) == 0 {
			g.logger.Debug("no complete runs, skipping gate check", "eval_type", s.Group.EvalType)
			continue
		}
		latest := complete[len(complete)-1]
		threshold := cfg.Threshold(s.Group.EvalType)

		check := models.PromotionEvalCheck{
			EvalType:  s.Group.EvalType,
			PassRate:  latest.PassRate,
			Threshold: threshold,
			Passed:    latest.PassRate >= threshold,
			RunID:     latest.RunID,
		}
		result.Checks = append(result.Checks, check)
		result.JustifyingRunIDs = append(result.JustifyingRunIDs, latest.RunID)
		if !check.Passed {
			result.Allowed = false
			result.BlockingEvals = append(result.BlockingEvals, check.EvalType)
		}
	}
	return result, nil
}

// PromotionRequest describes an alias move to execute.
type PromotionRequest struct {
	PromptName       string
	ToAlias          string
	Version          int
	Actor            string
	JustifyingRunIDs []string
	// FromVersion is recorded in the audit trail. Nil means read it from the registry.
	FromVersion *int
	// BlockingEvals are the eval types that failed the gate.
	BlockingEvals []string
	// Force executes the promotion even when BlockingEvals is non-empty.
	Force  bool
	Reason string
}

// RequestFromResult builds the request that executes a gate decision.
func RequestFromResult(r models.PromotionResult, actor string) PromotionRequest {
	return PromotionRequest{
		PromptName:       r.PromptName,
		ToAlias:          r.ToAlias,
		Version:          r.Version,
		Actor:            actor,
		JustifyingRunIDs: r.JustifyingRunIDs,
		BlockingEvals:    r.BlockingEvals,
	}
}

// ExecutePromotion moves the alias and attaches an audit record to every
// justifying run. Audit failures are logged and never undo the alias move.
func (g *Gate) ExecutePromotion(ctx context.Context, req PromotionRequest) (models.AuditRecord, error) {
	if len(req.BlockingEvals) > 0 && !req.Force {
		return models.AuditRecord{}, fmt.Errorf("%w: %s", ErrPromotionBlocked, strings.Join(req.BlockingEvals, ", "))
	}

	from := g.fromVersion(ctx, req.PromptName, req.ToAlias, req.FromVersion)

	swap, err := registry.SwapAlias(ctx, g.registry, req.PromptName, req.ToAlias, req.Version, g.swap)
	if err != nil {
		return models.AuditRecord{}, fmt.Errorf("promoting %s to v%d: %w", req.PromptName, req.Version, err)
	}
	if swap.Unverified != nil {
		g.logger.Warn("alias write not verified", "prompt", req.PromptName, "alias", req.ToAlias, "error", swap.Unverified)
	}
	g.logger.Info("prompt promoted",
		"prompt", req.PromptName, "alias", req.ToAlias,
		"from_version", from, "to_version", swap.Current, "attempts", swap.Attempts)

	rec := audit.NewRecord(audit.Action{
		Kind:        models.AuditPromote,
		PromptName:  req.PromptName,
		FromVersion: from,
		ToVersion:   req.Version,
		Alias:       req.ToAlias,
		Actor:       req.Actor,
		Reason:      promotionReason(req),
		RunIDs:      req.JustifyingRunIDs,
	})
	g.audit.Attach(ctx, rec)
	return rec, nil
}

func promotionReason(req PromotionRequest) string {
	if len(req.BlockingEvals) > 0 {
		reason := fmt.Sprintf("%s bypassed failing eval types %s", ForcedReasonPrefix, strings.Join(req.BlockingEvals, ", "))
		if req.Reason != "" {
			reason += "; " + req.Reason
		}
		return reason
	}
	if req.Reason != "" {
		return req.Reason
	}
	return "promotion gate passed"
}

// fromVersion returns the explicit version, or the alias's current version, or 0.
func (g *Gate) fromVersion(ctx context.Context, name, alias string, explicit *int) int {
	if explicit != nil {
		return *explicit
	}
	v, err := registry.CurrentVersion(ctx, g.registry, name, alias)
	if err != nil {
		g.logger.Debug("current version unavailable for audit", "prompt", name, "alias", alias, "error", err)
		return 0
	}
	return v
}
