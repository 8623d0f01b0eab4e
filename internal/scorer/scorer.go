// Package scorer implements the confidence model: a pure mapping from a
// pass's per-dimension scores to the aggregate confidence used by the
// escalation, convergence, and arbitration logic. It never calls a
// reasoning tier.
package scorer

import (
	"fmt"
	"math"
	"sort"
)

// ValidationError reports a malformed sub-confidence score. Malformed
// scores are rejected, never silently coerced.
type ValidationError struct {
	Dimension string
	Value     float64
	Reason    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scorer: dimension %q: %s (value %v)", e.Dimension, e.Reason, e.Value)
}

// Aggregate computes the aggregate confidence over named sub-dimensions as
// their geometric mean, so a single very low dimension strongly suppresses
// the aggregate. Scores above 1 are clamped to 1; NaN or negative scores
// are a validation error. The aggregate is always in [0,1], and 0 whenever
// any dimension is 0.
func Aggregate(dims map[string]float64) (float64, error) {
	if len(dims) == 0 {
		return 0, &ValidationError{Reason: "no sub-dimensions"}
	}

	// Sorted iteration so the first validation error is deterministic.
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	logSum := 0.0
	for _, k := range keys {
		v := dims[k]
		if math.IsNaN(v) {
			return 0, &ValidationError{Dimension: k, Value: v, Reason: "score is NaN"}
		}
		if v < 0 {
			return 0, &ValidationError{Dimension: k, Value: v, Reason: "score is negative"}
		}
		if v > 1 {
			v = 1
		}
		if v == 0 {
			return 0, nil
		}
		logSum += math.Log(v)
	}

	agg := math.Exp(logSum / float64(len(dims)))
	// Guard against float drift at the boundary.
	if agg > 1 {
		agg = 1
	}
	return agg, nil
}

// Validate checks all sub-dimension scores without aggregating.
func Validate(dims map[string]float64) error {
	_, err := Aggregate(dims)
	return err
}
