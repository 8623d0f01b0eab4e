package engine

import (
	"strings"

	"github.com/johanlb/scapin-sub003/internal/model"
)

// outputSignature serializes the structured decision of a pass (action
// categories, destinations, and which option is recommended) for no-change
// detection between consecutive passes.
func outputSignature(out *model.RawPassOutput) string {
	if out == nil {
		return ""
	}
	var b strings.Builder
	for _, a := range out.Actions {
		b.WriteString(string(a.Category))
		b.WriteByte('|')
		b.WriteString(a.Destination)
		b.WriteByte('|')
		if a.IsRecommended {
			b.WriteByte('*')
		}
		b.WriteByte(';')
	}
	return b.String()
}

// converged decides loop termination after pass n, independent of
// escalation. Conditions are checked in priority order: confidence,
// no-change, max passes. The confidence stop is suppressed while a
// stakes-flagged analysis has not yet seen the expert tier.
func converged(n int, conf float64, prevSig, curSig string, cfg AnalysisConfig, highStakes, expertUsed bool) (model.StopReason, bool) {
	stakesSatisfied := !highStakes || expertUsed

	if conf >= cfg.ConvergenceConfidence && stakesSatisfied {
		return model.StopConfidenceSufficient, true
	}
	if prevSig != "" && prevSig == curSig {
		return model.StopNoChange, true
	}
	if n >= cfg.MaxPasses {
		return model.StopMaxPasses, true
	}
	return "", false
}
