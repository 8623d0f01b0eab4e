package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/arbiter"
	"github.com/johanlb/scapin-sub003/internal/engine"
	"github.com/johanlb/scapin-sub003/internal/invoker"
	"github.com/johanlb/scapin-sub003/internal/model"
	"github.com/johanlb/scapin-sub003/internal/store"
	anthropicpkg "github.com/johanlb/scapin-sub003/pkg/anthropic"
	"github.com/johanlb/scapin-sub003/pkg/notion"
)

// triageEnv bundles the wired-up collaborators every command needs.
type triageEnv struct {
	Store  store.Store
	Engine *engine.Engine
	Notion notion.Client
	Arb    arbiter.Config
}

func initTriage(ctx context.Context) (*triageEnv, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	var inv invoker.Invoker = anthropicpkg.NewInvoker(anthropicClient, anthropicpkg.Models{
		Fast:     cfg.Anthropic.FastModel,
		Balanced: cfg.Anthropic.BalancedModel,
		Expert:   cfg.Anthropic.ExpertModel,
	})
	inv = invoker.NewRateLimited(inv, cfg.Anthropic.RequestsPerSec)

	// No knowledge store ships yet; analyses run with empty context until a
	// retriever is wired here.
	eng := engine.New(inv, nil, st, cfg.AnalysisConfig())

	env := &triageEnv{
		Store:  st,
		Engine: eng,
		Arb:    cfg.ArbitrationConfig(),
	}
	if cfg.Notion.Token != "" && cfg.Notion.ReviewDB != "" {
		env.Notion = notion.NewClient(cfg.Notion.Token)
		zap.L().Info("notion review queue enabled")
	} else {
		zap.L().Debug("TRIAGE_NOTION_TOKEN not set, review items logged only")
	}

	return env, nil
}

func (e *triageEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// triageEvent runs the full decision path for one event: analyze, then
// arbitrate, then publish anything held for review.
func (e *triageEnv) triageEvent(ctx context.Context, ev model.PerceivedEvent) (*model.MultiPassResult, *model.ActionPlan, error) {
	res, err := e.Engine.Analyze(ctx, ev)
	if err != nil {
		return nil, nil, err
	}

	plan, err := arbiter.Arbitrate(res, e.Arb)
	if err != nil {
		return res, nil, err
	}

	if e.Notion != nil && len(plan.Review) > 0 {
		if err := notion.PublishReview(ctx, e.Notion, cfg.Notion.ReviewDB, ev, plan); err != nil {
			zap.L().Warn("publish review items", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}

	return res, plan, nil
}
