package webapi

import "github.com/spboyer/evalgate/internal/models"

// TrendsResponse is the /api/trends payload.
type TrendsResponse struct {
	Summaries []models.TrendSummary `json:"summaries"`
}

// AuditResponse is the /api/audit payload.
type AuditResponse struct {
	Records []models.AuditRecord `json:"records"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
