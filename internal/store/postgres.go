package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store uses. Tests substitute a
// mock pool.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres backs the decision trail with a shared database, for
// deployments where several workers write the trail concurrently.
type Postgres struct {
	pool pgPool
}

// NewPostgres connects to dsn and applies migrations. A non-nil pool
// bypasses the connection (used by tests).
func NewPostgres(ctx context.Context, dsn string, pool pgPool) (*Postgres, error) {
	if pool == nil {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, eris.Wrap(err, "store: connect postgres")
		}
		pool = p
	}
	s := &Postgres{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL,
	event      JSONB NOT NULL,
	status     TEXT NOT NULL,
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_event_id ON analyses(event_id);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);

CREATE TABLE IF NOT EXISTS analysis_passes (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	pass_number INTEGER NOT NULL,
	pass        JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_analysis_id ON analysis_passes(analysis_id);
`

// Migrate creates the schema if missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "store: migrate postgres")
	}
	return nil
}

func (s *Postgres) CreateAnalysis(ctx context.Context, id string, event model.PerceivedEvent) (*AnalysisRecord, error) {
	if id == "" {
		id = uuid.NewString()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal event")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, event_id, event, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, event.ID, eventJSON, string(StatusRunning), now, now)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert analysis")
	}
	return &AnalysisRecord{ID: id, Event: event, Status: StatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Postgres) RecordPass(ctx context.Context, analysisID string, pass model.PassResult) (*PassRecord, error) {
	passJSON, err := json.Marshal(pass)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal pass")
	}
	rec := &PassRecord{
		ID:         uuid.NewString(),
		AnalysisID: analysisID,
		Pass:       pass,
		RecordedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_passes (id, analysis_id, pass_number, pass, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, analysisID, pass.Number, passJSON, rec.RecordedAt)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert pass")
	}
	return rec, nil
}

func (s *Postgres) CompleteAnalysis(ctx context.Context, analysisID string, status AnalysisStatus, result *model.MultiPassResult) error {
	var resultJSON []byte
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "store: marshal result")
		}
		resultJSON = b
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, result = $2, updated_at = $3 WHERE id = $4`,
		string(status), resultJSON, time.Now().UTC(), analysisID)
	if err != nil {
		return eris.Wrap(err, "store: update analysis")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: analysis %s not found", analysisID)
	}
	return nil
}

func (s *Postgres) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, event, status, result, created_at, updated_at FROM analyses WHERE id = $1`, id)
	rec, err := scanPGAnalysis(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("store: analysis %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get analysis")
	}
	return rec, nil
}

func (s *Postgres) ListAnalyses(ctx context.Context, filter Filter) ([]AnalysisRecord, error) {
	query := `SELECT id, event, status, result, created_at, updated_at FROM analyses WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.EventID != "" {
		query += ` AND event_id = ` + arg(filter.EventID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list analyses")
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		rec, err := scanPGAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan analysis")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "store: list analyses")
}

func (s *Postgres) ListPasses(ctx context.Context, analysisID string) ([]PassRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, analysis_id, pass, recorded_at FROM analysis_passes
		 WHERE analysis_id = $1 ORDER BY pass_number ASC`, analysisID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list passes")
	}
	defer rows.Close()

	var out []PassRecord
	for rows.Next() {
		var rec PassRecord
		var passJSON []byte
		if err := rows.Scan(&rec.ID, &rec.AnalysisID, &passJSON, &rec.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan pass")
		}
		if err := json.Unmarshal(passJSON, &rec.Pass); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal pass")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "store: list passes")
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func scanPGAnalysis(row pgx.Row) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var eventJSON []byte
	var resultJSON []byte
	var status string
	if err := row.Scan(&rec.ID, &eventJSON, &status, &resultJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = AnalysisStatus(status)
	if err := json.Unmarshal(eventJSON, &rec.Event); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal event")
	}
	if len(resultJSON) > 0 {
		rec.Result = &model.MultiPassResult{}
		if err := json.Unmarshal(resultJSON, rec.Result); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal result")
		}
	}
	return &rec, nil
}
