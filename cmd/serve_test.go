package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanlb/scapin-sub003/internal/arbiter"
	"github.com/johanlb/scapin-sub003/internal/engine"
	"github.com/johanlb/scapin-sub003/internal/invoker"
	"github.com/johanlb/scapin-sub003/internal/model"
)

type fixedInvoker struct{}

func (fixedInvoker) Invoke(ctx context.Context, tier model.Tier, req invoker.PassRequest) (*model.RawPassOutput, error) {
	return &model.RawPassOutput{
		Dimensions: map[string]float64{"relevance": 0.96, "completeness": 0.96, "consistency": 0.96},
		Actions: []model.ActionOption{{
			Category: model.ActionArchive, Destination: "done", Confidence: 0.9, IsRecommended: true,
		}},
	}, nil
}

func testEnv() *triageEnv {
	return &triageEnv{
		Engine: engine.New(fixedInvoker{}, nil, nil, engine.AnalysisConfig{}),
		Arb:    arbiter.DefaultConfig(),
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAnalyzeHandlerRejectsBadBody(t *testing.T) {
	h := analyzeHandler(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/webhook/analyze", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandlerRequiresEventID(t *testing.T) {
	h := analyzeHandler(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/webhook/analyze",
		strings.NewReader(`{"source":"mail","subject":"hi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandlerAcceptsEvent(t *testing.T) {
	h := analyzeHandler(context.Background(), testEnv())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/webhook/analyze",
		strings.NewReader(`{"id":"evt-1","source":"mail","subject":"hi","body":"hello"}`)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"evt-1"`)
}
