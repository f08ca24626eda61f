// Package runstore is the read side of the external experiment/run-tracking
// service, plus the one write the engine performs against it: tagging runs.
package runstore

//go:generate go tool mockgen -source=store.go -destination=mock_client.go -package=runstore

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrRunNotFound is returned when a run ID does not match any stored run.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state reported by the tracking service.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

// TerminalStatuses are the statuses of runs that will not change any more.
var TerminalStatuses = []RunStatus{RunStatusFinished, RunStatusFailed, RunStatusKilled}

// Experiment is one run group on the tracking side.
type Experiment struct {
	ID   string `json:"experiment_id"`
	Name string `json:"name"`
}

// Run is a single tracked run with its logged metrics, params and tags.
type Run struct {
	RunID        string             `json:"run_id"`
	ExperimentID string             `json:"experiment_id"`
	StartTime    time.Time          `json:"start_time"`
	Status       RunStatus          `json:"status"`
	Metrics      map[string]float64 `json:"metrics"`
	Params       map[string]string  `json:"params"`
	Tags         map[string]string  `json:"tags"`
}

// Failed reports whether the run itself failed, as opposed to individual cases.
func (r Run) Failed() bool {
	return r.Status == RunStatusFailed || r.Status == RunStatusKilled
}

// Assessment is a judge or scorer verdict attached to a trace.
type Assessment struct {
	Name      string `json:"name"`
	Value     any    `json:"value"`
	Rationale string `json:"rationale,omitempty"`
}

// Trace is one recorded request/response exchange logged during a run. Request and
// Response hold the raw payload text, which is JSON for structured payloads.
type Trace struct {
	TraceID     string            `json:"trace_id"`
	RequestTime time.Time         `json:"request_time"`
	DurationMs  int64             `json:"duration_ms"`
	Metadata    map[string]string `json:"metadata"`
	Assessments []Assessment      `json:"assessments"`
	Request     string            `json:"request"`
	Response    string            `json:"response"`
}

// RunQuery selects runs inside one experiment.
type RunQuery struct {
	ExperimentID string
	// Statuses restricts results to the given statuses. Empty means any.
	Statuses []RunStatus
	// NewestFirst orders by start time descending; otherwise ascending.
	NewestFirst bool
	// Limit caps the number of runs returned. Zero means the store default.
	Limit int
}

// Client provides access to the run-tracking service.
type Client interface {
	// SearchExperiments lists every experiment visible to the client.
	SearchExperiments(ctx context.Context) ([]Experiment, error)
	// SearchRuns returns runs matching the query.
	SearchRuns(ctx context.Context, q RunQuery) ([]Run, error)
	// GetRun returns a single run, or ErrRunNotFound.
	GetRun(ctx context.Context, runID string) (*Run, error)
	// SetTag writes one tag onto a run.
	SetTag(ctx context.Context, runID, key, value string) error
	// FetchTraces returns every trace recorded for a run.
	FetchTraces(ctx context.Context, runID string) ([]Trace, error)
}

func statusAllowed(status RunStatus, allowed []RunStatus) bool {
	return len(allowed) == 0 || slices.Contains(allowed, status)
}
