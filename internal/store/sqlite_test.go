package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanlb/scapin-sub003/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "trail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEvent() model.PerceivedEvent {
	return model.PerceivedEvent{
		ID:         "evt-001",
		Source:     model.SourceMail,
		Sender:     "ana@example.com",
		Subject:    "Renewal quote",
		Body:       "Please confirm the renewal.",
		ReceivedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteAnalysisLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec, err := s.CreateAnalysis(ctx, "", testEvent())
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusRunning, rec.Status)

	got, err := s.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "evt-001", got.Event.ID)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.Result)

	result := &model.MultiPassResult{
		AnalysisID: rec.ID,
		EventID:    "evt-001",
		PassCount:  2,
		FinalTier:  model.TierBalanced,
		StopReason: model.StopConfidenceSufficient,
	}
	require.NoError(t, s.CompleteAnalysis(ctx, rec.ID, StatusComplete, result))

	got, err = s.GetAnalysis(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, model.StopConfidenceSufficient, got.Result.StopReason)
	assert.Equal(t, model.TierBalanced, got.Result.FinalTier)
}

func TestSQLiteRecordAndListPasses(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec, err := s.CreateAnalysis(ctx, "an-1", testEvent())
	require.NoError(t, err)

	for i, tier := range []model.Tier{model.TierFast, model.TierBalanced} {
		_, err := s.RecordPass(ctx, rec.ID, model.PassResult{
			Number:          i + 1,
			Tier:            tier,
			ConfidenceAfter: 0.4 + 0.3*float64(i),
		})
		require.NoError(t, err)
	}

	passes, err := s.ListPasses(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, 1, passes[0].Pass.Number)
	assert.Equal(t, model.TierFast, passes[0].Pass.Tier)
	assert.Equal(t, 2, passes[1].Pass.Number)
	assert.Equal(t, model.TierBalanced, passes[1].Pass.Tier)
}

func TestSQLiteListAnalysesFilter(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := s.CreateAnalysis(ctx, "", testEvent())
	require.NoError(t, err)
	other := testEvent()
	other.ID = "evt-002"
	_, err = s.CreateAnalysis(ctx, "", other)
	require.NoError(t, err)

	require.NoError(t, s.CompleteAnalysis(ctx, a.ID, StatusComplete, nil))

	complete, err := s.ListAnalyses(ctx, Filter{Status: StatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a.ID, complete[0].ID)

	byEvent, err := s.ListAnalyses(ctx, Filter{EventID: "evt-002"})
	require.NoError(t, err)
	require.Len(t, byEvent, 1)
	assert.Equal(t, "evt-002", byEvent[0].Event.ID)

	limited, err := s.ListAnalyses(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteCompleteUnknownAnalysis(t *testing.T) {
	s := newTestSQLiteStore(t)
	err := s.CompleteAnalysis(context.Background(), "missing", StatusComplete, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteGetUnknownAnalysis(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOpenNoopDriver(t *testing.T) {
	s, err := Open(context.Background(), "none", "")
	require.NoError(t, err)
	_, ok := s.(Noop)
	assert.True(t, ok)

	_, err = Open(context.Background(), "oracle", "")
	require.Error(t, err)
}
