// Package audit records promote and rollback actions on the runs that justify them.
package audit

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/runstore"
)

// Sink receives a copy of every record the Logger writes.
type Sink interface {
	Append(ctx context.Context, rec models.AuditRecord) error
}

// Action describes the operator action being recorded.
type Action struct {
	Kind        models.AuditAction
	PromptName  string
	FromVersion int
	ToVersion   int
	Alias       string
	Actor       string
	Reason      string
	RunIDs      []string
}

// now is replaced in tests.
var now = time.Now

// NewRecord stamps an action with a fresh ID and the current UTC time.
func NewRecord(a Action) models.AuditRecord {
	runIDs := slices.Clone(a.RunIDs)
	if runIDs == nil {
		runIDs = []string{}
	}
	return models.AuditRecord{
		ID:          uuid.NewString(),
		Action:      a.Kind,
		PromptName:  a.PromptName,
		FromVersion: a.FromVersion,
		ToVersion:   a.ToVersion,
		Alias:       a.Alias,
		Timestamp:   now().UTC(),
		Actor:       a.Actor,
		Reason:      a.Reason,
		RunIDs:      runIDs,
	}
}

// AttachResult lists which runs received the record.
type AttachResult struct {
	Attached []string `json:"attached"`
	Failed   []string `json:"failed"`
}

// Logger writes audit records as run tags.
type Logger struct {
	store   runstore.Client
	journal Sink
	logger  *slog.Logger
}

// NewLogger creates a Logger. journal may be nil.
func NewLogger(store runstore.Client, journal Sink, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{store: store, journal: journal, logger: logger}
}

// Attach writes rec onto every run in rec.RunIDs. Failures are logged and
// reported in the result; they never fail the action the record describes.
func (l *Logger) Attach(ctx context.Context, rec models.AuditRecord) AttachResult {
	result := AttachResult{Attached: []string{}, Failed: []string{}}
	tags := rec.Tags()
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, runID := range rec.RunIDs {
		if err := l.tagRun(ctx, runID, keys, tags); err != nil {
			l.logger.Warn("audit tag write failed",
				"audit_id", rec.ID, "run_id", runID, "error", err)
			result.Failed = append(result.Failed, runID)
			continue
		}
		result.Attached = append(result.Attached, runID)
	}

	if l.journal != nil {
		if err := l.journal.Append(ctx, rec); err != nil {
			l.logger.Warn("audit journal write failed", "audit_id", rec.ID, "error", err)
		}
	}

	l.logger.Info("audit recorded",
		"audit_id", rec.ID,
		"action", rec.Action,
		"prompt", rec.PromptName,
		"from_version", rec.FromVersion,
		"to_version", rec.ToVersion,
		"runs", len(result.Attached),
		"failed", len(result.Failed))
	return result
}

func (l *Logger) tagRun(ctx context.Context, runID string, keys []string, tags map[string]string) error {
	for _, k := range keys {
		if err := l.store.SetTag(ctx, runID, k, tags[k]); err != nil {
			return err
		}
	}
	return nil
}

// RecordsForRun reads back the audit records attached to a run.
func RecordsForRun(ctx context.Context, store runstore.Client, runID string) ([]models.AuditRecord, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return models.AuditRecordsFromTags(run.Tags), nil
}
