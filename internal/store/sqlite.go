package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// SQLite backs the decision trail with an embedded database file. The
// default choice for single-operator deployments.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and applies
// migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	// modernc's driver is not safe for concurrent writes on one connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: %s", pragma)
		}
	}

	s := &SQLite{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL,
	event      TEXT NOT NULL,
	status     TEXT NOT NULL,
	result     TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_event_id ON analyses(event_id);
CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);

CREATE TABLE IF NOT EXISTS analysis_passes (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	pass_number INTEGER NOT NULL,
	pass        TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_analysis_id ON analysis_passes(analysis_id);
`

// Migrate creates the schema if missing.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "store: migrate sqlite")
	}
	return nil
}

func (s *SQLite) CreateAnalysis(ctx context.Context, id string, event model.PerceivedEvent) (*AnalysisRecord, error) {
	if id == "" {
		id = uuid.NewString()
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal event")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, event_id, event, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, event.ID, string(eventJSON), string(StatusRunning), now, now)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert analysis")
	}
	return &AnalysisRecord{ID: id, Event: event, Status: StatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLite) RecordPass(ctx context.Context, analysisID string, pass model.PassResult) (*PassRecord, error) {
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_passes (id, analysis_id, pass_number, pass, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, analysisID, pass.Number, string(passJSON), rec.RecordedAt)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert pass")
	}
	return rec, nil
}

func (s *SQLite) CompleteAnalysis(ctx context.Context, analysisID string, status AnalysisStatus, result *model.MultiPassResult) error {
	var resultJSON sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return eris.Wrap(err, "store: marshal result")
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, result = ?, updated_at = ? WHERE id = ?`,
		string(status), resultJSON, time.Now().UTC(), analysisID)
	if err != nil {
		return eris.Wrap(err, "store: update analysis")
	}
	return checkRowsAffected(res, analysisID)
}

func (s *SQLite) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, event, status, result, created_at, updated_at FROM analyses WHERE id = ?`, id)
	rec, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("store: analysis %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get analysis")
	}
	return rec, nil
}

func (s *SQLite) ListAnalyses(ctx context.Context, filter Filter) ([]AnalysisRecord, error) {
	query := `SELECT id, event, status, result, created_at, updated_at FROM analyses WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.EventID != "" {
		query += ` AND event_id = ?`
		args = append(args, filter.EventID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list analyses")
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan analysis")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "store: list analyses")
}

func (s *SQLite) ListPasses(ctx context.Context, analysisID string) ([]PassRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, pass, recorded_at FROM analysis_passes
		 WHERE analysis_id = ? ORDER BY pass_number ASC`, analysisID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list passes")
	}
	defer rows.Close()

	var out []PassRecord
	for rows.Next() {
		var rec PassRecord
		var passJSON string
		if err := rows.Scan(&rec.ID, &rec.AnalysisID, &passJSON, &rec.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan pass")
		}
		if err := json.Unmarshal([]byte(passJSON), &rec.Pass); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal pass")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "store: list passes")
}

func (s *SQLite) Close() error {
	return eris.Wrap(s.db.Close(), "store: close sqlite")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var eventJSON string
	var resultJSON sql.NullString
	var status string
	if err := row.Scan(&rec.ID, &eventJSON, &status, &resultJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = AnalysisStatus(status)
	if err := json.Unmarshal([]byte(eventJSON), &rec.Event); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal event")
	}
	if resultJSON.Valid {
		rec.Result = &model.MultiPassResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), rec.Result); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal result")
		}
	}
	return &rec, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: analysis %s not found", id)
	}
	return nil
}
