// Package store persists the decision trail: one record per analysis and
// one per pass, enough to reconstruct the full decision post hoc. The
// engine works against the interface; SQLite and Postgres drivers ship.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// AnalysisStatus tracks an analysis record's lifecycle.
type AnalysisStatus string

// Analysis statuses.
const (
	StatusRunning   AnalysisStatus = "running"
	StatusComplete  AnalysisStatus = "complete"
	StatusDegraded  AnalysisStatus = "degraded"
	StatusCancelled AnalysisStatus = "cancelled"
	StatusFailed    AnalysisStatus = "failed"
)

// AnalysisRecord is one stored analysis.
type AnalysisRecord struct {
	ID        string                 `json:"id"`
	Event     model.PerceivedEvent   `json:"event"`
	Status    AnalysisStatus         `json:"status"`
	Result    *model.MultiPassResult `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// PassRecord is one stored pass of an analysis.
type PassRecord struct {
	ID         string           `json:"id"`
	AnalysisID string           `json:"analysis_id"`
	Pass       model.PassResult `json:"pass"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// Filter specifies criteria for listing analyses.
type Filter struct {
	Status  AnalysisStatus `json:"status,omitempty"`
	EventID string         `json:"event_id,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
}

// Store defines decision-trail persistence.
type Store interface {
	CreateAnalysis(ctx context.Context, id string, event model.PerceivedEvent) (*AnalysisRecord, error)
	RecordPass(ctx context.Context, analysisID string, pass model.PassResult) (*PassRecord, error)
	CompleteAnalysis(ctx context.Context, analysisID string, status AnalysisStatus, result *model.MultiPassResult) error
	GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error)
	ListAnalyses(ctx context.Context, filter Filter) ([]AnalysisRecord, error)
	ListPasses(ctx context.Context, analysisID string) ([]PassRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs a Store for the given driver. Driver "none" returns the
// no-op store.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	case "", "none":
		return Noop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// Noop discards all records; analyses run fine without persistence.
type Noop struct{}

func (Noop) CreateAnalysis(ctx context.Context, id string, event model.PerceivedEvent) (*AnalysisRecord, error) {
	return &AnalysisRecord{ID: id, Event: event, Status: StatusRunning}, nil
}

func (Noop) RecordPass(ctx context.Context, analysisID string, pass model.PassResult) (*PassRecord, error) {
	return &PassRecord{AnalysisID: analysisID, Pass: pass}, nil
}

func (Noop) CompleteAnalysis(ctx context.Context, analysisID string, status AnalysisStatus, result *model.MultiPassResult) error {
	return nil
}

func (Noop) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	return nil, eris.New("store: no persistence configured")
}

func (Noop) ListAnalyses(ctx context.Context, filter Filter) ([]AnalysisRecord, error) {
	return nil, nil
}

func (Noop) ListPasses(ctx context.Context, analysisID string) ([]PassRecord, error) {
	return nil, nil
}

func (Noop) Migrate(ctx context.Context) error { return nil }
func (Noop) Close() error                      { return nil }
