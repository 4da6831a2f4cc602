package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tandem/internal/ir"
)

func count(n int64) ir.Object {
	return ir.Object{"count": ir.Int(n)}
}

func TestController_BaselineIsCopy(t *testing.T) {
	c := NewController(count(1), nil)

	got := c.Baseline().(ir.Object)
	got["count"] = ir.Int(99)

	assert.Equal(t, count(1), c.Baseline())
}

func TestController_NilInitialIsNull(t *testing.T) {
	c := NewController(nil, nil)
	assert.Equal(t, ir.Null{}, c.Baseline())
}

func TestController_OnCheckpointAdoptsLast(t *testing.T) {
	c := NewController(count(0), nil)

	c.OnCheckpoint([]ir.Value{count(1), count(2), count(3)})
	assert.Equal(t, count(3), c.Baseline())

	c.OnCheckpoint(nil)
	assert.Equal(t, count(3), c.Baseline(), "empty history must not change the baseline")
}

func TestController_Reset(t *testing.T) {
	c := NewController(count(0), nil)
	c.OnCheckpoint([]ir.Value{count(4)})

	c.Reset()
	assert.Equal(t, count(0), c.Baseline())
}

func TestController_MiddlewareCommitsBeforeNext(t *testing.T) {
	c := NewController(count(0), nil)
	history := []ir.Value{count(0), count(5)}

	next := func(ctx context.Context, a ir.Action) error {
		// The log collapses its history when it handles COMMIT.
		history = history[:1]
		return nil
	}
	dispatch := c.Middleware(func() []ir.Value { return history })(next)

	require.NoError(t, dispatch(context.Background(), ir.Commit()))
	assert.Equal(t, count(5), c.Baseline())
}

func TestController_MiddlewareResetsBeforeNext(t *testing.T) {
	c := NewController(count(0), nil)
	c.OnCheckpoint([]ir.Value{count(5)})

	var baselineSeenByNext ir.Value
	next := func(ctx context.Context, a ir.Action) error {
		baselineSeenByNext = c.Baseline()
		return nil
	}
	dispatch := c.Middleware(func() []ir.Value { return nil })(next)

	require.NoError(t, dispatch(context.Background(), ir.NewAction(ir.KindReset)))
	assert.Equal(t, count(0), baselineSeenByNext)
	assert.Equal(t, count(0), c.Baseline())
}

func TestController_MiddlewareRestoresBaselineWhenResetFails(t *testing.T) {
	c := NewController(count(0), nil)
	c.OnCheckpoint([]ir.Value{count(5)})

	boom := errors.New("boom")
	dispatch := c.Middleware(func() []ir.Value { return nil })(func(context.Context, ir.Action) error {
		return boom
	})

	err := dispatch(context.Background(), ir.NewAction(ir.KindReset))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, count(5), c.Baseline())
}

func TestController_MiddlewarePassesOtherKinds(t *testing.T) {
	c := NewController(count(0), nil)
	var seen []string
	dispatch := c.Middleware(func() []ir.Value { return []ir.Value{count(9)} })(
		func(_ context.Context, a ir.Action) error {
			seen = append(seen, a.Kind)
			return nil
		})

	require.NoError(t, dispatch(context.Background(), ir.NewAction("increment", ir.Int(1))))
	assert.Equal(t, []string{"increment"}, seen)
	assert.Equal(t, count(0), c.Baseline())
}
