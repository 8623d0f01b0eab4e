// Package engine implements the multi-pass analysis loop: a blind baseline
// pass, context-augmented refinement, tier escalation when confidence or
// stakes warrant it, and convergence detection to stop early.
package engine

import (
	"time"

	"github.com/johanlb/scapin-sub003/internal/invoker"
)

// AnalysisConfig holds the tunables of one analysis. Zero values fall back
// to the defaults below.
type AnalysisConfig struct {
	// MaxPasses bounds the pass loop. Default 5.
	MaxPasses int

	// AutoApplyThreshold gates automatic execution of the recommended
	// action at arbitration time. Default 0.85.
	AutoApplyThreshold float64

	// RequiredEnrichmentThreshold gates auto-apply of required
	// enrichments. Default 0.80.
	RequiredEnrichmentThreshold float64

	// OptionalEnrichmentThreshold gates auto-apply of optional
	// enrichments. Default 0.85.
	OptionalEnrichmentThreshold float64

	// ConvergenceConfidence stops the loop outright when reached.
	// Default 0.95.
	ConvergenceConfidence float64

	// HighStakesAmount flags events mentioning a monetary amount at or
	// above this value. Zero disables the amount check.
	HighStakesAmount float64

	// HighStakesDeadlineHours flags events whose deadline falls within
	// this many hours. Default 48.
	HighStakesDeadlineHours int

	// VIPSenders flags events from these senders as high-stakes.
	// Matching is case- and diacritic-insensitive.
	VIPSenders []string

	// Timeouts are per-tier invoker deadlines.
	Timeouts invoker.Timeouts
}

// DefaultConfig returns the default analysis configuration.
func DefaultConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxPasses:                   5,
		AutoApplyThreshold:          0.85,
		RequiredEnrichmentThreshold: 0.80,
		OptionalEnrichmentThreshold: 0.85,
		ConvergenceConfidence:       0.95,
		HighStakesDeadlineHours:     48,
		Timeouts:                    invoker.DefaultTimeouts(),
	}
}

func (c AnalysisConfig) withDefaults() AnalysisConfig {
	def := DefaultConfig()
	if c.MaxPasses <= 0 {
		c.MaxPasses = def.MaxPasses
	}
	if c.AutoApplyThreshold <= 0 {
		c.AutoApplyThreshold = def.AutoApplyThreshold
	}
	if c.RequiredEnrichmentThreshold <= 0 {
		c.RequiredEnrichmentThreshold = def.RequiredEnrichmentThreshold
	}
	if c.OptionalEnrichmentThreshold <= 0 {
		c.OptionalEnrichmentThreshold = def.OptionalEnrichmentThreshold
	}
	if c.ConvergenceConfidence <= 0 {
		c.ConvergenceConfidence = def.ConvergenceConfidence
	}
	if c.HighStakesDeadlineHours <= 0 {
		c.HighStakesDeadlineHours = def.HighStakesDeadlineHours
	}
	if c.Timeouts == (invoker.Timeouts{}) {
		c.Timeouts = def.Timeouts
	}
	return c
}

// DeadlineWindow returns the high-stakes deadline horizon as a duration.
func (c AnalysisConfig) DeadlineWindow() time.Duration {
	return time.Duration(c.HighStakesDeadlineHours) * time.Hour
}
