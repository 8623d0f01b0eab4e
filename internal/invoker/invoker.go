// Package invoker defines the reasoning-tier collaborator interface and
// wrappers that add per-tier timeouts, a single same-tier retry, and shared
// rate limiting. The decision core never talks to a model provider directly.
package invoker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/johanlb/scapin-sub003/internal/model"
	"github.com/johanlb/scapin-sub003/internal/resilience"
)

// PassRequest carries everything a reasoning tier needs for one pass.
type PassRequest struct {
	Event      model.PerceivedEvent
	PassNumber int
	Type       model.PassType

	// Previous is the prior pass's output; nil on the blind first pass.
	Previous *model.RawPassOutput

	// OpenQuestions are the doubts the previous pass asked this one to
	// resolve.
	OpenQuestions []string

	// Context is the retrieved context bundle; nil on the blind pass.
	Context *model.ContextBundle
}

// Invoker is the reasoning-tier collaborator: one call, one pass output.
type Invoker interface {
	Invoke(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error)
}

// Error wraps a failed tier invocation (timeout, transport failure, or
// malformed output).
type Error struct {
	Tier model.Tier
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invoker: %s tier call failed: %v", e.Tier, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeouts holds per-tier call deadlines. The expert tier is allowed the
// longest to think.
type Timeouts struct {
	Fast     time.Duration
	Balanced time.Duration
	Expert   time.Duration
}

// DefaultTimeouts returns the default per-tier deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Fast:     30 * time.Second,
		Balanced: 90 * time.Second,
		Expert:   240 * time.Second,
	}
}

// For returns the deadline for the given tier.
func (t Timeouts) For(tier model.Tier) time.Duration {
	switch tier {
	case model.TierBalanced:
		return t.Balanced
	case model.TierExpert:
		return t.Expert
	default:
		return t.Fast
	}
}

// Resilient wraps an Invoker with per-tier timeouts, one same-tier retry,
// and structural output validation. A timeout or malformed output counts as
// a failed attempt exactly like a transport error.
type Resilient struct {
	inner    Invoker
	timeouts Timeouts
	validate func(*model.RawPassOutput) error
}

// NewResilient builds the resilient wrapper. validate may be nil.
func NewResilient(inner Invoker, timeouts Timeouts, validate func(*model.RawPassOutput) error) *Resilient {
	return &Resilient{inner: inner, timeouts: timeouts, validate: validate}
}

// Invoke calls the inner invoker with the tier's deadline, retrying once at
// the same tier on any failure. Parent-context cancellation stops the retry.
func (r *Resilient) Invoke(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error) {
	cfg := resilience.Config{
		MaxAttempts:    2,
		InitialBackoff: 500 * time.Millisecond,
		OnRetry:        resilience.Logger("invoker", string(tier)),
	}

	out, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*model.RawPassOutput, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeouts.For(tier))
		defer cancel()

		out, err := r.inner.Invoke(callCtx, tier, req)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, fmt.Errorf("empty pass output")
		}
		if r.validate != nil {
			if err := r.validate(out); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, &Error{Tier: tier, Err: err}
	}
	return out, nil
}

// RateLimited wraps an Invoker with a shared token-bucket limiter so the
// concurrent-analyses worker pool stays within the provider's rate limits.
type RateLimited struct {
	inner   Invoker
	limiter *rate.Limiter
}

// NewRateLimited builds a rate-limited wrapper at rps requests per second.
// rps <= 0 disables throttling.
func NewRateLimited(inner Invoker, rps float64) *RateLimited {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
	return &RateLimited{inner: inner, limiter: limiter}
}

func (r *RateLimited) Invoke(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.inner.Invoke(ctx, tier, req)
}
