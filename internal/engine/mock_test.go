package engine

import (
	"context"
	"sync"

	"github.com/johanlb/scapin-sub003/internal/invoker"
	"github.com/johanlb/scapin-sub003/internal/model"
	"github.com/johanlb/scapin-sub003/internal/store"
)

// scriptedInvoker replays a fixed sequence of outputs and errors, one per
// call. The resilient wrapper's retry consumes an extra call, so failing
// passes appear twice in the script.
type scriptedInvoker struct {
	mu      sync.Mutex
	script  []scriptedCall
	calls   []scriptedSeen
	onCall  func(n int)
	exhaust error
}

type scriptedCall struct {
	out *model.RawPassOutput
	err error
}

type scriptedSeen struct {
	tier model.Tier
	req  invoker.PassRequest
}

func (s *scriptedInvoker) Invoke(ctx context.Context, tier model.Tier, req invoker.PassRequest) (*model.RawPassOutput, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, scriptedSeen{tier: tier, req: req})
	var call scriptedCall
	if n < len(s.script) {
		call = s.script[n]
	} else {
		call = scriptedCall{err: s.exhaust}
	}
	onCall := s.onCall
	s.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	return call.out, call.err
}

func (s *scriptedInvoker) seen() []scriptedSeen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scriptedSeen(nil), s.calls...)
}

// output builds a pass output whose dimensions all equal conf, so the
// aggregate confidence equals conf exactly.
func output(conf float64, actions ...model.ActionOption) *model.RawPassOutput {
	return &model.RawPassOutput{
		Dimensions: map[string]float64{
			"relevance":    conf,
			"completeness": conf,
			"consistency":  conf,
		},
		Actions:  actions,
		Entities: []string{"Acme Corp"},
		Usage:    model.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

func archiveAction(dest string, recommended bool) model.ActionOption {
	return model.ActionOption{
		Category:      model.ActionFile,
		Destination:   dest,
		Confidence:    0.9,
		IsRecommended: recommended,
	}
}

// recordingTrail captures decision-trail writes for assertions.
type recordingTrail struct {
	store.Noop

	mu        sync.Mutex
	created   []string
	passes    []model.PassResult
	completed []completedCall
}

type completedCall struct {
	analysisID string
	status     store.AnalysisStatus
	result     *model.MultiPassResult
}

func (r *recordingTrail) CreateAnalysis(ctx context.Context, id string, event model.PerceivedEvent) (*store.AnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, id)
	return &store.AnalysisRecord{ID: id, Event: event, Status: store.StatusRunning}, nil
}

func (r *recordingTrail) RecordPass(ctx context.Context, analysisID string, pass model.PassResult) (*store.PassRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, pass)
	return &store.PassRecord{AnalysisID: analysisID, Pass: pass}, nil
}

func (r *recordingTrail) CompleteAnalysis(ctx context.Context, analysisID string, status store.AnalysisStatus, result *model.MultiPassResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, completedCall{analysisID: analysisID, status: status, result: result})
	return nil
}

// countedRetriever returns a fixed bundle and counts queries.
type countedRetriever struct {
	mu      sync.Mutex
	bundle  *model.ContextBundle
	queries [][]string
}

func (c *countedRetriever) Query(ctx context.Context, entities []string, source model.SourceType) (*model.ContextBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, entities)
	return c.bundle, nil
}
