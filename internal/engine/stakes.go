package engine

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/johanlb/scapin-sub003/internal/model"
)

var foldCaser = cases.Fold()

// canonical lowercases and NFC-normalizes an identifier so VIP matching
// survives casing and composed/decomposed unicode differences.
func canonical(s string) string {
	return foldCaser.String(norm.NFC.String(strings.TrimSpace(s)))
}

// evalStakes applies the high-stakes predicate: monetary amount at or above
// the configured threshold, deadline within the configured window, or a VIP
// sender. OR-combined; the caller keeps the flag sticky once true.
// Returns the first matching reason for the decision trail.
func evalStakes(ev model.PerceivedEvent, cfg AnalysisConfig, now time.Time) (bool, string) {
	if cfg.HighStakesAmount > 0 && ev.Amount != nil && *ev.Amount >= cfg.HighStakesAmount {
		return true, fmt.Sprintf("amount %.2f >= threshold %.2f", *ev.Amount, cfg.HighStakesAmount)
	}

	if ev.Deadline != nil && !ev.Deadline.Before(now) && ev.Deadline.Sub(now) <= cfg.DeadlineWindow() {
		return true, fmt.Sprintf("deadline within %dh", cfg.HighStakesDeadlineHours)
	}

	sender := canonical(ev.Sender)
	for _, vip := range cfg.VIPSenders {
		if sender != "" && sender == canonical(vip) {
			return true, "vip sender"
		}
	}

	return false, ""
}
