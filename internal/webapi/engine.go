package webapi

import (
	"context"
	"errors"

	"github.com/spboyer/evalgate/internal/auditlog"
	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/promotion"
	"github.com/spboyer/evalgate/internal/regression"
	"github.com/spboyer/evalgate/internal/rundetail"
	"github.com/spboyer/evalgate/internal/trends"
)

// ErrAuditUnavailable is returned when no audit journal is configured.
var ErrAuditUnavailable = errors.New("audit journal not configured")

// Engine is the read-only view of the eval engine the API serves.
type Engine interface {
	// SuiteEvalTypes resolves a suite name to its eval types. "" means all.
	SuiteEvalTypes(suite string) ([]string, error)
	Summaries(ctx context.Context, evalTypes []string, limit int) []models.TrendSummary
	CheckAllRegressions(ctx context.Context, evalTypes []string, runID string, limit int) models.RegressionCheck
	CheckPromotionGate(ctx context.Context, promptName, fromAlias, toAlias string, version int) (models.PromotionResult, error)
	GetRunDetail(ctx context.Context, runID, evalType string) (*models.RunDetail, error)
	AuditRecords(ctx context.Context, promptName string, limit int) ([]models.AuditRecord, error)
}

// Service wires the engine components behind the Engine interface.
type Service struct {
	Config        *projectconfig.ProjectConfig
	Aggregator    *trends.Aggregator
	Detector      *regression.Detector
	Gate          *promotion.Gate
	Reconstructor *rundetail.Reconstructor
	// Journal is optional.
	Journal *auditlog.Journal
}

func (s *Service) SuiteEvalTypes(suite string) ([]string, error) {
	return s.Config.SuiteEvalTypes(suite)
}

func (s *Service) Summaries(ctx context.Context, evalTypes []string, limit int) []models.TrendSummary {
	return s.Aggregator.Summaries(ctx, evalTypes, limit)
}

func (s *Service) CheckAllRegressions(ctx context.Context, evalTypes []string, runID string, limit int) models.RegressionCheck {
	return s.Detector.CheckAllRegressions(ctx, evalTypes, runID, limit)
}

func (s *Service) CheckPromotionGate(ctx context.Context, promptName, fromAlias, toAlias string, version int) (models.PromotionResult, error) {
	return s.Gate.CheckPromotionGate(ctx, promptName, fromAlias, toAlias, version)
}

func (s *Service) GetRunDetail(ctx context.Context, runID, evalType string) (*models.RunDetail, error) {
	return s.Reconstructor.GetRunDetail(ctx, runID, evalType)
}

func (s *Service) AuditRecords(ctx context.Context, promptName string, limit int) ([]models.AuditRecord, error) {
	if s.Journal == nil {
		return nil, ErrAuditUnavailable
	}
	return s.Journal.List(ctx, promptName, limit)
}

var _ Engine = (*Service)(nil)
