package invoker

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johanlb/scapin-sub003/internal/model"
	"github.com/johanlb/scapin-sub003/internal/scorer"
)

// scriptedInvoker returns canned responses in order, failing where the
// script says so.
type scriptedInvoker struct {
	calls   int
	outputs []*model.RawPassOutput
	errs    []error
}

func (s *scriptedInvoker) Invoke(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return &model.RawPassOutput{Dimensions: map[string]float64{"action": 0.9}}, nil
}

func validOutput() *model.RawPassOutput {
	return &model.RawPassOutput{Dimensions: map[string]float64{"action": 0.8}}
}

func TestResilient_PassesThrough(t *testing.T) {
	inner := &scriptedInvoker{outputs: []*model.RawPassOutput{validOutput()}}
	r := NewResilient(inner, DefaultTimeouts(), nil)

	out, err := r.Invoke(context.Background(), model.TierFast, PassRequest{PassNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.8, out.Dimensions["action"])
	assert.Equal(t, 1, inner.calls)
}

func TestResilient_RetriesOnceThenSucceeds(t *testing.T) {
	inner := &scriptedInvoker{
		errs:    []error{eris.New("transient"), nil},
		outputs: []*model.RawPassOutput{nil, validOutput()},
	}
	timeouts := DefaultTimeouts()
	r := NewResilient(inner, timeouts, nil)

	out, err := r.Invoke(context.Background(), model.TierBalanced, PassRequest{PassNumber: 2})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, 2, inner.calls)
}

func TestResilient_SecondFailureReturnsError(t *testing.T) {
	inner := &scriptedInvoker{
		errs: []error{eris.New("down"), eris.New("still down")},
	}
	r := NewResilient(inner, DefaultTimeouts(), nil)

	_, err := r.Invoke(context.Background(), model.TierExpert, PassRequest{PassNumber: 3})
	require.Error(t, err)

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, model.TierExpert, ierr.Tier)
	assert.Equal(t, 2, inner.calls)
}

func TestResilient_MalformedOutputCountsAsFailure(t *testing.T) {
	inner := &scriptedInvoker{
		outputs: []*model.RawPassOutput{
			{Dimensions: map[string]float64{"action": -1}},
			validOutput(),
		},
	}
	validate := func(out *model.RawPassOutput) error {
		return scorer.Validate(out.Dimensions)
	}
	r := NewResilient(inner, DefaultTimeouts(), validate)

	out, err := r.Invoke(context.Background(), model.TierFast, PassRequest{PassNumber: 1})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, 2, inner.calls)
}

func TestResilient_TimeoutFailsTheAttempt(t *testing.T) {
	slow := invokerFunc(func(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return validOutput(), nil
		}
	})
	r := NewResilient(slow, Timeouts{Fast: 5 * time.Millisecond, Balanced: 5 * time.Millisecond, Expert: 5 * time.Millisecond}, nil)

	_, err := r.Invoke(context.Background(), model.TierFast, PassRequest{PassNumber: 1})
	require.Error(t, err)

	var ierr *Error
	assert.ErrorAs(t, err, &ierr)
}

func TestResilient_ParentCancellationStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := &scriptedInvoker{errs: []error{eris.New("fails"), eris.New("fails")}}
	r := NewResilient(inner, DefaultTimeouts(), nil)

	cancel()
	_, err := r.Invoke(ctx, model.TierFast, PassRequest{PassNumber: 1})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestTimeouts_For(t *testing.T) {
	timeouts := DefaultTimeouts()
	assert.Equal(t, timeouts.Fast, timeouts.For(model.TierFast))
	assert.Equal(t, timeouts.Balanced, timeouts.For(model.TierBalanced))
	assert.Equal(t, timeouts.Expert, timeouts.For(model.TierExpert))
	assert.Greater(t, timeouts.Expert, timeouts.Fast)
}

func TestRateLimited_PassesThrough(t *testing.T) {
	inner := &scriptedInvoker{outputs: []*model.RawPassOutput{validOutput()}}
	r := NewRateLimited(inner, 100)

	out, err := r.Invoke(context.Background(), model.TierFast, PassRequest{PassNumber: 1})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestRateLimited_DisabledWithZeroRPS(t *testing.T) {
	inner := &scriptedInvoker{outputs: []*model.RawPassOutput{validOutput()}}
	r := NewRateLimited(inner, 0)

	_, err := r.Invoke(context.Background(), model.TierFast, PassRequest{PassNumber: 1})
	require.NoError(t, err)
}

// invokerFunc adapts a function to the Invoker interface.
type invokerFunc func(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error)

func (f invokerFunc) Invoke(ctx context.Context, tier model.Tier, req PassRequest) (*model.RawPassOutput, error) {
	return f(ctx, tier, req)
}
