package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanlb/scapin-sub003/internal/model"
)

func newTestPostgresStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Postgres{pool: mock}, mock
}

func TestPostgresCreateAnalysis(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(pgxmock.AnyArg(), "evt-001", pgxmock.AnyArg(), string(StatusRunning), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.CreateAnalysis(context.Background(), "", testEvent())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusRunning, rec.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordPass(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("INSERT INTO analysis_passes").
		WithArgs(pgxmock.AnyArg(), "an-1", 3, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.RecordPass(context.Background(), "an-1", model.PassResult{Number: 3, Tier: model.TierExpert})
	require.NoError(t, err)
	assert.Equal(t, "an-1", rec.AnalysisID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteAnalysis(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("UPDATE analyses SET").
		WithArgs(string(StatusComplete), pgxmock.AnyArg(), pgxmock.AnyArg(), "an-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteAnalysis(context.Background(), "an-1", StatusComplete, &model.MultiPassResult{AnalysisID: "an-1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteAnalysisNotFound(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("UPDATE analyses SET").
		WithArgs(string(StatusComplete), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteAnalysis(context.Background(), "missing", StatusComplete, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetAnalysis(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	created := testEvent()
	rows := pgxmock.NewRows([]string{"id", "event", "status", "result", "created_at", "updated_at"}).
		AddRow("an-1", []byte(`{"id":"evt-001","source":"mail"}`), string(StatusComplete),
			[]byte(`{"analysis_id":"an-1","stop_reason":"confidence_sufficient"}`),
			created.ReceivedAt, created.ReceivedAt)
	mock.ExpectQuery("SELECT id, event, status, result, created_at, updated_at FROM analyses").
		WithArgs("an-1").
		WillReturnRows(rows)

	rec, err := s.GetAnalysis(context.Background(), "an-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-001", rec.Event.ID)
	assert.Equal(t, StatusComplete, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, model.StopConfidenceSufficient, rec.Result.StopReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListPasses(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	now := testEvent().ReceivedAt
	rows := pgxmock.NewRows([]string{"id", "analysis_id", "pass", "recorded_at"}).
		AddRow("p1", "an-1", []byte(`{"number":1,"tier":"fast-cheap"}`), now).
		AddRow("p2", "an-1", []byte(`{"number":2,"tier":"balanced"}`), now)
	mock.ExpectQuery("SELECT id, analysis_id, pass, recorded_at FROM analysis_passes").
		WithArgs("an-1").
		WillReturnRows(rows)

	passes, err := s.ListPasses(context.Background(), "an-1")
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, model.TierFast, passes[0].Pass.Tier)
	assert.Equal(t, model.TierBalanced, passes[1].Pass.Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}
