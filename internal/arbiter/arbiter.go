// Package arbiter turns a finished multi-pass analysis into an action
// plan: which conclusions execute autonomously and which are queued for
// human review. Arbitration is pure; re-arbitrating the same result yields
// the same plan.
package arbiter

import (
	"fmt"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// Config holds the arbitration thresholds. Zero values fall back to the
// defaults below.
type Config struct {
	// AutoApplyThreshold gates automatic execution of the recommended
	// action. Default 0.85.
	AutoApplyThreshold float64

	// RequiredEnrichmentThreshold gates auto-apply of required
	// enrichments. Default 0.80.
	RequiredEnrichmentThreshold float64

	// OptionalEnrichmentThreshold gates auto-apply of optional
	// enrichments. Default 0.85.
	OptionalEnrichmentThreshold float64
}

// DefaultConfig returns the default arbitration thresholds.
func DefaultConfig() Config {
	return Config{
		AutoApplyThreshold:          0.85,
		RequiredEnrichmentThreshold: 0.80,
		OptionalEnrichmentThreshold: 0.85,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.AutoApplyThreshold <= 0 {
		c.AutoApplyThreshold = def.AutoApplyThreshold
	}
	if c.RequiredEnrichmentThreshold <= 0 {
		c.RequiredEnrichmentThreshold = def.RequiredEnrichmentThreshold
	}
	if c.OptionalEnrichmentThreshold <= 0 {
		c.OptionalEnrichmentThreshold = def.OptionalEnrichmentThreshold
	}
	return c
}

// ValidationError reports a malformed analysis result. The plan is
// withheld; the result needs manual reasoning supplementation, not a crash.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("arbiter: invalid result: %s", e.Reason)
}

// Arbitrate decides what the finished analysis is allowed to do on its
// own. Rules, in order:
//
//   - at most one action option may be recommended, and every
//     non-recommended option must carry a rejection reason;
//   - the recommended action auto-executes only above the auto-apply
//     threshold, never from a degraded analysis, and never for a
//     high-stakes event the expert tier has not reviewed;
//   - required enrichments auto-apply at their threshold, optional ones at
//     theirs (in the background); manual overrides short-circuit both;
//   - a terminal action (archive, delete) is held for review while any
//     required enrichment remains unapplied. Applied enrichments are
//     ordered before the action step.
func Arbitrate(res *model.MultiPassResult, cfg Config) (*model.ActionPlan, error) {
	cfg = cfg.withDefaults()

	if err := validate(res); err != nil {
		return nil, err
	}

	plan := &model.ActionPlan{
		AnalysisID: res.AnalysisID,
		EventID:    res.EventID,
	}

	requiredPending := arbitrateEnrichments(res, cfg, plan)
	arbitrateAction(res, cfg, plan, requiredPending)
	return plan, nil
}

func validate(res *model.MultiPassResult) error {
	recommended := 0
	for _, a := range res.Actions {
		if a.IsRecommended {
			recommended++
			continue
		}
		if a.RejectionReason == "" {
			return &ValidationError{Reason: fmt.Sprintf(
				"non-recommended %s option lacks a rejection reason", a.Category)}
		}
	}
	if recommended > 1 {
		return &ValidationError{Reason: fmt.Sprintf(
			"%d options marked recommended, want at most one", recommended)}
	}
	return nil
}

// arbitrateEnrichments routes notes and tasks into steps or review and
// reports whether any required enrichment is left unapplied.
func arbitrateEnrichments(res *model.MultiPassResult, cfg Config, plan *model.ActionPlan) bool {
	requiredPending := false

	route := func(e model.Enrichment) {
		switch {
		case e.Override == model.OverrideReject:
			// Explicitly dismissed; not planned, not reviewed.
		case e.Override == model.OverrideApply:
			plan.Steps = append(plan.Steps, model.PlannedStep{
				Kind: model.StepEnrichment, Enrichment: &e, Background: !e.Required,
			})
		case e.Required && e.Confidence >= cfg.RequiredEnrichmentThreshold:
			plan.Steps = append(plan.Steps, model.PlannedStep{
				Kind: model.StepEnrichment, Enrichment: &e,
			})
		case !e.Required && e.Confidence >= cfg.OptionalEnrichmentThreshold:
			plan.Steps = append(plan.Steps, model.PlannedStep{
				Kind: model.StepEnrichment, Enrichment: &e, Background: true,
			})
		case e.Required:
			requiredPending = true
			plan.Review = append(plan.Review, model.ReviewItem{
				Reason:     "required enrichment below confidence threshold",
				Enrichment: &e,
			})
		default:
			plan.Review = append(plan.Review, model.ReviewItem{
				Reason:     "optional enrichment below confidence threshold",
				Enrichment: &e,
			})
		}
	}

	for _, n := range res.Notes {
		route(n)
	}
	for _, t := range res.Tasks {
		route(t)
	}
	return requiredPending
}

func arbitrateAction(res *model.MultiPassResult, cfg Config, plan *model.ActionPlan, requiredPending bool) {
	for _, a := range res.Actions {
		if !a.IsRecommended {
			plan.Rejected = append(plan.Rejected, a)
		}
	}

	rec := res.Recommended()
	if rec == nil {
		if len(res.Actions) > 0 {
			plan.Review = append(plan.Review, model.ReviewItem{
				Reason: "no recommended action among proposed options",
			})
		}
		return
	}
	action := *rec

	hold := func(reason string) {
		plan.Review = append(plan.Review, model.ReviewItem{Reason: reason, Action: &action})
	}

	switch {
	case res.Degraded:
		hold("analysis degraded before convergence")
	case res.HighStakes && !res.UsedTier(model.TierExpert):
		hold("high-stakes event without expert-tier review")
	case action.Confidence < cfg.AutoApplyThreshold:
		hold("action confidence below auto-apply threshold")
	case action.Category.Terminal() && requiredPending:
		hold("terminal action held until required enrichment is resolved")
	default:
		plan.Steps = append(plan.Steps, model.PlannedStep{
			Kind: model.StepAction, Action: &action,
		})
	}
}
