package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/invoker"
	"github.com/johanlb/scapin-sub003/internal/model"
	"github.com/johanlb/scapin-sub003/internal/retrieval"
	"github.com/johanlb/scapin-sub003/internal/scorer"
	"github.com/johanlb/scapin-sub003/internal/store"
)

// Engine runs the multi-pass analysis loop for one event at a time. Safe
// for concurrent use; each Analyze call is independent.
type Engine struct {
	invoker   invoker.Invoker
	retriever retrieval.Retriever
	trail     store.Store
	cfg       AnalysisConfig
	now       func() time.Time
}

// New builds an Engine. The invoker is wrapped with per-tier timeouts, one
// same-tier retry, and structural output validation; the retriever is
// wrapped so retrieval failures degrade to an empty context bundle. A nil
// retriever means no knowledge store; a nil trail store disables the
// decision trail.
func New(inv invoker.Invoker, ret retrieval.Retriever, trail store.Store, cfg AnalysisConfig) *Engine {
	cfg = cfg.withDefaults()
	if ret == nil {
		ret = retrieval.Empty{}
	}
	if trail == nil {
		trail = store.Noop{}
	}
	return &Engine{
		invoker: invoker.NewResilient(inv, cfg.Timeouts, func(out *model.RawPassOutput) error {
			return scorer.Validate(out.Dimensions)
		}),
		retriever: retrieval.NewDegrading(ret),
		trail:     trail,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Analyze runs the pass loop on one event until a stop condition fires:
// sufficient confidence, no change between passes, the pass cap, repeated
// invoker failure, or cancellation. A nil error with Degraded set means
// the loop stopped early but still produced a usable decision. Cancellation
// discards the pending output: the result keeps its recorded passes but
// carries no final actions, and a wrapped context error is returned with it.
func (e *Engine) Analyze(ctx context.Context, ev model.PerceivedEvent) (*model.MultiPassResult, error) {
	start := e.now()
	analysisID := uuid.NewString()

	if _, err := e.trail.CreateAnalysis(ctx, analysisID, ev); err != nil {
		zap.L().Warn("engine: decision trail unavailable",
			zap.String("analysis_id", analysisID), zap.Error(err))
	}

	res := &model.MultiPassResult{
		AnalysisID: analysisID,
		EventID:    ev.ID,
	}

	var (
		cur        = step{Tier: model.TierFast, Type: model.PassBlind}
		lastGood   *model.RawPassOutput
		prevSig    string
		conf       float64
		expertUsed bool
		highStakes bool
	)

	for n := 1; ; n++ {
		// Cancellation is honored at pass boundaries only; a pass in
		// flight runs to completion. The pending output is discarded,
		// completed passes stay in the trail.
		if ctx.Err() != nil {
			if lastGood == nil {
				e.finish(ctx, res, store.StatusCancelled, start, nil)
				return nil, eris.Wrap(ctx.Err(), "engine: analysis cancelled before first pass")
			}
			res.StopReason = model.StopCancelled
			res.Degraded = true
			res.Warnings = append(res.Warnings, "analysis cancelled before convergence")
			e.finish(ctx, res, store.StatusCancelled, start, nil)
			return res, eris.Wrap(ctx.Err(), "engine: analysis cancelled at pass boundary")
		}

		// The stakes predicate is re-checked every pass and sticky once
		// true; a deadline can drift inside the window mid-analysis.
		if !highStakes {
			if hs, reason := evalStakes(ev, e.cfg, e.now()); hs {
				highStakes = true
				res.HighStakes = true
				zap.L().Info("engine: event flagged high-stakes",
					zap.String("analysis_id", analysisID),
					zap.String("event_id", ev.ID),
					zap.Int("pass", n),
					zap.String("reason", reason))
			}
		}

		req := invoker.PassRequest{
			Event:      ev,
			PassNumber: n,
			Type:       cur.Type,
		}
		var contextItems int
		if cur.Type != model.PassBlind {
			req.Previous = lastGood
			if lastGood != nil {
				req.OpenQuestions = lastGood.OpenQuestions
			}
			bundle, err := e.retriever.Query(ctx, queryEntities(ev, lastGood), ev.Source)
			if err != nil || bundle == nil {
				bundle = &model.ContextBundle{}
			}
			req.Context = bundle
			contextItems = bundle.Size()
		}

		passStart := e.now()
		out, err := e.invoker.Invoke(ctx, cur.Tier, req)
		if err != nil {
			if ctx.Err() != nil {
				continue // cancellation check at the top of the loop decides
			}
			if lastGood == nil {
				e.finish(ctx, res, store.StatusFailed, start, nil)
				return nil, eris.Wrapf(err, "engine: first pass failed for event %s", ev.ID)
			}
			zap.L().Warn("engine: pass failed after retry, stopping with last good output",
				zap.String("analysis_id", analysisID),
				zap.Int("pass", n),
				zap.String("tier", string(cur.Tier)),
				zap.Error(err))
			res.StopReason = model.StopInvokerFailure
			res.Degraded = true
			res.Warnings = append(res.Warnings, "reasoning tier failed after retry; decision based on "+lastPassLabel(res.Passes))
			break
		}

		agg, err := scorer.Aggregate(out.Dimensions)
		if err != nil {
			// The resilient wrapper validates dimensions, so this only
			// fires if validation was bypassed.
			if lastGood == nil {
				e.finish(ctx, res, store.StatusFailed, start, nil)
				return nil, eris.Wrapf(err, "engine: unscorable first pass for event %s", ev.ID)
			}
			res.StopReason = model.StopInvokerFailure
			res.Degraded = true
			res.Warnings = append(res.Warnings, "unscorable pass output; decision based on "+lastPassLabel(res.Passes))
			break
		}

		pass := model.PassResult{
			Number:           n,
			Type:             cur.Type,
			Tier:             cur.Tier,
			ConfidenceBefore: conf,
			ConfidenceAfter:  agg,
			Dimensions:       out.Dimensions,
			DurationMs:       e.now().Sub(passStart).Milliseconds(),
			Usage:            out.Usage,
			OpenQuestions:    out.OpenQuestions,
			Escalated:        cur.Escalated,
			ContextSearched:  cur.Type != model.PassBlind,
			ContextItems:     contextItems,
		}
		res.Passes = append(res.Passes, pass)
		res.TotalUsage.Add(out.Usage)
		if _, err := e.trail.RecordPass(ctx, analysisID, pass); err != nil {
			zap.L().Warn("engine: failed to record pass",
				zap.String("analysis_id", analysisID), zap.Int("pass", n), zap.Error(err))
		}
		zap.L().Info("engine: pass complete",
			zap.String("analysis_id", analysisID),
			zap.Int("pass", n),
			zap.String("type", string(cur.Type)),
			zap.String("tier", string(cur.Tier)),
			zap.Float64("confidence", agg),
			zap.Int("context_items", contextItems),
			zap.Int64("duration_ms", pass.DurationMs))

		conf = agg
		lastGood = out
		expertUsed = expertUsed || cur.Tier == model.TierExpert
		res.Escalated = res.Escalated || cur.Escalated

		sig := outputSignature(out)
		if reason, done := converged(n, conf, prevSig, sig, e.cfg, highStakes, expertUsed); done {
			res.StopReason = reason
			break
		}
		prevSig = sig

		next, ok := nextStep(n, conf, highStakes, expertUsed, cur.Tier)
		if !ok {
			res.StopReason = model.StopConfidenceSufficient
			break
		}
		cur = next
	}

	e.finish(ctx, res, "", start, lastGood)
	return res, nil
}

// finish fills the summary fields and closes out the trail record. An
// empty status is derived from the result.
func (e *Engine) finish(ctx context.Context, res *model.MultiPassResult, status store.AnalysisStatus, start time.Time, lastGood *model.RawPassOutput) {
	res.PassCount = len(res.Passes)
	for _, p := range res.Passes {
		if !tierSeen(res.TiersUsed, p.Tier) {
			res.TiersUsed = append(res.TiersUsed, p.Tier)
		}
	}
	if res.PassCount > 0 {
		res.FinalTier = res.Passes[res.PassCount-1].Tier
	}
	res.TotalDurationMs = e.now().Sub(start).Milliseconds()
	if lastGood != nil {
		res.Actions = lastGood.Actions
		res.Notes = lastGood.Notes
		res.Tasks = lastGood.Tasks
	}

	if status == "" {
		status = store.StatusComplete
		if res.Degraded {
			status = store.StatusDegraded
		}
	}
	// The trail record outlives the analysis context.
	flushCtx := context.WithoutCancel(ctx)
	if err := e.trail.CompleteAnalysis(flushCtx, res.AnalysisID, status, res); err != nil {
		zap.L().Warn("engine: failed to close decision trail",
			zap.String("analysis_id", res.AnalysisID), zap.Error(err))
	}

	zap.L().Info("engine: analysis finished",
		zap.String("analysis_id", res.AnalysisID),
		zap.String("event_id", res.EventID),
		zap.Int("passes", res.PassCount),
		zap.String("final_tier", string(res.FinalTier)),
		zap.String("stop_reason", string(res.StopReason)),
		zap.Bool("high_stakes", res.HighStakes),
		zap.Bool("degraded", res.Degraded),
		zap.Int("total_tokens", res.TotalUsage.Total()))
}

func tierSeen(tiers []model.Tier, t model.Tier) bool {
	for _, seen := range tiers {
		if seen == t {
			return true
		}
	}
	return false
}

func lastPassLabel(passes []model.PassResult) string {
	if len(passes) == 0 {
		return "no pass"
	}
	return "pass " + strconv.Itoa(passes[len(passes)-1].Number)
}
