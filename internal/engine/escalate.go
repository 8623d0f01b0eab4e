package engine

import "github.com/johanlb/scapin-sub003/internal/model"

// Confidence bands of the escalation decision table. The table is
// deterministic; stakes escalation always wins over a same-tier
// continuation.
const (
	// refineThreshold: below this after three passes, refinement at the
	// current tier has plateaued and the next pass escalates.
	refineThreshold = 0.80

	// earlyPasses: refinement passes before escalation clauses apply.
	earlyPasses = 3
)

// step describes the next pass the escalation controller has chosen.
type step struct {
	Tier      model.Tier
	Type      model.PassType
	Escalated bool
}

// nextStep decides the pass after pass number n, given the aggregate
// confidence, the sticky high-stakes flag, and whether the expert tier has
// run. The second return is false when no further pass is warranted: the
// analysis has plateaued at a workable confidence and should stop with
// stop_reason confidence_sufficient.
func nextStep(n int, conf float64, highStakes, expertUsed bool, cur model.Tier) (step, bool) {
	// Stakes-flagged events must see the expert tier before any stop or
	// same-tier continuation.
	if highStakes && !expertUsed {
		return step{Tier: model.TierExpert, Type: model.PassExpert, Escalated: true}, true
	}

	// The first passes refine at the current tier regardless of how weak
	// the blind baseline was; escalation clauses apply from pass three on.
	if n < earlyPasses {
		return step{Tier: cur, Type: model.PassRefine}, true
	}

	// Plateau: confidence is workable and no escalation is warranted, so
	// another same-tier pass is not expected to change the outcome.
	if conf >= refineThreshold {
		return step{}, false
	}

	switch cur {
	case model.TierFast:
		return step{Tier: model.TierBalanced, Type: model.PassDeep, Escalated: true}, true
	case model.TierBalanced:
		return step{Tier: model.TierExpert, Type: model.PassExpert, Escalated: true}, true
	default:
		// Already at the top tier: keep refining there until another
		// stop condition fires.
		return step{Tier: model.TierExpert, Type: model.PassExpert}, true
	}
}
