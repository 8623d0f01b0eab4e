package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/johanlb/scapin-sub003/internal/model"
)

func TestConvergedConfidenceHasPriority(t *testing.T) {
	cfg := DefaultConfig()

	// Confidence beats both no-change and the pass cap.
	reason, done := converged(5, 0.96, "sig", "sig", cfg, false, false)
	assert.True(t, done)
	assert.Equal(t, model.StopConfidenceSufficient, reason)
}

func TestConvergedNoChange(t *testing.T) {
	cfg := DefaultConfig()

	reason, done := converged(2, 0.70, "archive|a|*;", "archive|a|*;", cfg, false, false)
	assert.True(t, done)
	assert.Equal(t, model.StopNoChange, reason)

	// An empty previous signature never matches: the first pass cannot
	// trigger a no-change stop.
	_, done = converged(1, 0.70, "", "", cfg, false, false)
	assert.False(t, done)
}

func TestConvergedMaxPasses(t *testing.T) {
	cfg := DefaultConfig()

	reason, done := converged(5, 0.70, "a", "b", cfg, false, false)
	assert.True(t, done)
	assert.Equal(t, model.StopMaxPasses, reason)

	_, done = converged(4, 0.70, "a", "b", cfg, false, false)
	assert.False(t, done)
}

func TestConvergedStakesSuppressConfidenceStop(t *testing.T) {
	cfg := DefaultConfig()

	_, done := converged(1, 0.99, "", "sig", cfg, true, false)
	assert.False(t, done)

	reason, done := converged(2, 0.99, "sig", "other", cfg, true, true)
	assert.True(t, done)
	assert.Equal(t, model.StopConfidenceSufficient, reason)
}

func TestOutputSignature(t *testing.T) {
	a := output(0.8, archiveAction("inbox", true))
	b := output(0.9, archiveAction("inbox", true))
	c := output(0.8, archiveAction("inbox", false))

	// Confidence changes do not change the signature; structural changes do.
	assert.Equal(t, outputSignature(a), outputSignature(b))
	assert.NotEqual(t, outputSignature(a), outputSignature(c))
	assert.Empty(t, outputSignature(nil))
}
