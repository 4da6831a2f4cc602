package bridge

import (
	"context"
	"log/slog"

	"github.com/roach88/tandem/internal/ir"
)

// Controller tracks the committed baseline: the snapshot restored whenever
// the log initializes.
type Controller struct {
	baseline ir.Value
	initial  ir.Value
	logger   *slog.Logger
}

// NewController creates a Controller whose baseline is initial. initial is
// also what Reset returns to.
func NewController(initial ir.Value, logger *slog.Logger) *Controller {
	if initial == nil {
		initial = ir.Null{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		baseline: ir.Clone(initial),
		initial:  ir.Clone(initial),
		logger:   logger,
	}
}

// Baseline returns a copy of the committed snapshot.
func (c *Controller) Baseline() ir.Value {
	return ir.Clone(c.baseline)
}

// OnCheckpoint adopts the last entry of the log's computed-state history as
// the new baseline. An empty history leaves the baseline unchanged.
func (c *Controller) OnCheckpoint(computed []ir.Value) {
	if len(computed) == 0 {
		return
	}
	c.baseline = ir.Clone(computed[len(computed)-1])
	c.logger.Debug("baseline committed", "history", len(computed))
}

// Reset restores the construction-time baseline.
func (c *Controller) Reset() {
	c.baseline = ir.Clone(c.initial)
	c.logger.Debug("baseline reset")
}

// Middleware wraps the log's dispatch function. It never replaces the log's
// own handling: COMMIT and RESET still reach next.
//
// history must return the log's computed states, oldest first.
func (c *Controller) Middleware(history func() []ir.Value) Middleware {
	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, a ir.Action) error {
			switch a.Kind {
			case ir.KindCommit:
				// Adopt before next collapses the history.
				c.OnCheckpoint(history())
				return next(ctx, a)
			case ir.KindReset:
				// The log re-initializes during RESET, so the baseline
				// must already be the construction snapshot.
				saved := c.baseline
				c.Reset()
				if err := next(ctx, a); err != nil {
					c.baseline = saved
					return err
				}
				return nil
			default:
				return next(ctx, a)
			}
		}
	}
}
