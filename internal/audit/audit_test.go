package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memorySink struct {
	records []models.AuditRecord
	err     error
}

func (s *memorySink) Append(_ context.Context, rec models.AuditRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func fixedNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestNewRecord(t *testing.T) {
	fixedNow(t, time.Date(2026, 5, 2, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600)))

	a := Action{Kind: models.AuditPromote, PromptName: "system", FromVersion: 3, ToVersion: 4,
		Alias: "production", Actor: "dana", Reason: "gate passed", RunIDs: []string{"r1", "r2"}}
	first := NewRecord(a)
	second := NewRecord(a)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, time.UTC, first.Timestamp.Location())
	assert.Equal(t, 8, first.Timestamp.Hour())
	assert.Equal(t, []string{"r1", "r2"}, first.RunIDs)

	a.RunIDs[0] = "changed"
	assert.Equal(t, "r1", first.RunIDs[0])
}

func TestAttach_WritesTagsAndJournal(t *testing.T) {
	ctx := context.Background()
	store := runstore.NewMemoryStore()
	store.AddRun(runstore.Run{RunID: "r1", Status: runstore.RunStatusFinished})
	store.AddRun(runstore.Run{RunID: "r2", Status: runstore.RunStatusFinished})
	sink := &memorySink{}

	rec := NewRecord(Action{Kind: models.AuditRollback, PromptName: "system", FromVersion: 4, ToVersion: 3,
		Alias: "production", Actor: "dana", Reason: "bad tone", RunIDs: []string{"r1", "r2"}})
	result := NewLogger(store, sink, nil).Attach(ctx, rec)

	assert.Equal(t, []string{"r1", "r2"}, result.Attached)
	assert.Empty(t, result.Failed)
	require.Len(t, sink.records, 1)
	assert.Equal(t, rec.ID, sink.records[0].ID)

	got, err := RecordsForRun(ctx, store, "r2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, models.AuditRollback, got[0].Action)
	assert.Equal(t, 4, got[0].FromVersion)
	assert.Equal(t, 3, got[0].ToVersion)
	assert.Equal(t, "bad tone", got[0].Reason)
	assert.Equal(t, []string{"r1", "r2"}, got[0].RunIDs)
	assert.True(t, rec.Timestamp.Truncate(time.Second).Equal(got[0].Timestamp))
}

func TestAttach_FailuresAreSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := runstore.NewMockClient(ctrl)

	rec := NewRecord(Action{Kind: models.AuditPromote, PromptName: "p", RunIDs: []string{"bad", "good"}})
	client.EXPECT().SetTag(gomock.Any(), "bad", gomock.Any(), gomock.Any()).
		Return(errors.New("forbidden")).Times(1)
	client.EXPECT().SetTag(gomock.Any(), "good", gomock.Any(), gomock.Any()).
		Return(nil).Times(len(rec.Tags()))

	sink := &memorySink{err: errors.New("disk full")}
	result := NewLogger(client, sink, nil).Attach(context.Background(), rec)

	assert.Equal(t, []string{"good"}, result.Attached)
	assert.Equal(t, []string{"bad"}, result.Failed)
}

func TestAttach_RepeatedActionsAreDistinct(t *testing.T) {
	ctx := context.Background()
	store := runstore.NewMemoryStore()
	store.AddRun(runstore.Run{RunID: "r1", Status: runstore.RunStatusFinished})
	logger := NewLogger(store, nil, nil)

	a := Action{Kind: models.AuditPromote, PromptName: "system", FromVersion: 4, ToVersion: 4, RunIDs: []string{"r1"}}
	logger.Attach(ctx, NewRecord(a))
	logger.Attach(ctx, NewRecord(a))

	got, err := RecordsForRun(ctx, store, "r1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
