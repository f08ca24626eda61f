package promotion

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spboyer/evalgate/internal/audit"
	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/registry"
)

// FindPreviousVersion guesses the version alias pointed at before its current one.
// It walks each eval type's recent runs newest first and returns the first
// recorded version of promptName that differs from the current one. When history
// never disagrees it falls back to current-1. Versions 1 and below have no
// predecessor.
func (g *Gate) FindPreviousVersion(ctx context.Context, promptName, alias string) (int, bool) {
	current, err := registry.CurrentVersion(ctx, g.registry, promptName, alias)
	if err != nil {
		g.logger.Warn("current version unavailable", "prompt", promptName, "alias", alias, "error", err)
		return 0, false
	}
	if current <= 1 {
		return 0, false
	}

	for _, s := range g.agg.CollectSeries(ctx, nil, g.agg.Config().RollbackScanLimit) {
		for i := len(s.Points) - 1; i >= 0; i-- {
			raw, ok := s.Points[i].PromptVersions[promptName]
			if !ok {
				continue
			}
			v, err := strconv.Atoi(raw)
			if err != nil || v == current {
				continue
			}
			g.logger.Debug("previous version found in run history",
				"prompt", promptName, "version", v, "run_id", s.Points[i].RunID)
			return v, true
		}
	}
	return current - 1, true
}

// ExecuteRollback points alias back at previousVersion and attaches the audit
// record to the most recent run across all eval types.
func (g *Gate) ExecuteRollback(ctx context.Context, promptName, alias string, previousVersion int, reason, actor string) (models.AuditRecord, error) {
	from := g.fromVersion(ctx, promptName, alias, nil)

	swap, err := registry.SwapAlias(ctx, g.registry, promptName, alias, previousVersion, g.swap)
	if err != nil {
		return models.AuditRecord{}, fmt.Errorf("rolling back %s to v%d: %w", promptName, previousVersion, err)
	}
	if swap.Unverified != nil {
		g.logger.Warn("alias write not verified", "prompt", promptName, "alias", alias, "error", swap.Unverified)
	}
	g.logger.Info("prompt rolled back",
		"prompt", promptName, "alias", alias, "from_version", from, "to_version", previousVersion)

	var runIDs []string
	if runID, ok := g.agg.LatestRunID(ctx); ok {
		runIDs = []string{runID}
	} else {
		g.logger.Warn("no run to attach rollback audit to", "prompt", promptName)
	}

	rec := audit.NewRecord(audit.Action{
		Kind:        models.AuditRollback,
		PromptName:  promptName,
		FromVersion: from,
		ToVersion:   previousVersion,
		Alias:       alias,
		Actor:       actor,
		Reason:      reason,
		RunIDs:      runIDs,
	})
	g.audit.Attach(ctx, rec)
	return rec, nil
}
