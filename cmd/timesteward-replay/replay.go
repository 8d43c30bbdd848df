package main

import (
	"context"
	"fmt"

	"github.com/timesteward/timesteward"
	"github.com/timesteward/timesteward/batch"
	"github.com/timesteward/timesteward/internal/ball"
	"github.com/timesteward/timesteward/synctest"
)

// reporter is satisfied by synctest.Reporter; runReplay accepts an
// interface so it can be exercised without a live pubsub topic.
type reporter interface {
	Publish(ctx context.Context, at timesteward.ExtendedTime, encodedSnapshot []byte) error
}

// runReplay applies steps against a freshly constructed ball-domain Engine,
// advancing one committed event at a time up to target. When rep is
// non-nil, it publishes a synctest Report after every commit, giving the
// coordinator per-event granularity (see synctest.Reporter.Publish's doc
// comment on why whole-AdvanceTo-call granularity is too coarse).
func runReplay(ctx context.Context, steps []batch.Step, target timesteward.Time, rep reporter) (*timesteward.Engine, error) {
	e := timesteward.New(timesteward.DefaultConfig())
	ball.Register(e)

	if err := batch.Replay(ctx, e, steps); err != nil {
		return nil, fmt.Errorf("replay batch: %w", err)
	}

	budget := &timesteward.WorkBudget{MaxSteps: 1}
	for {
		before := e.Present()
		outcome, err := e.AdvanceTo(ctx, target, budget)
		if err != nil {
			return nil, fmt.Errorf("advance to %d: %w", target, err)
		}
		// A step that only re-ran predictors leaves the present cursor
		// where it was; only a step that moved it is published.
		if rep != nil && outcome.Present != before {
			if err := publishState(ctx, e, outcome.Present, rep); err != nil {
				return nil, err
			}
		}
		if !outcome.BudgetExceeded {
			break
		}
	}
	return e, nil
}

// publishState snapshots e at at, serializes it with the ball-domain keys
// known to this demo binary, and publishes it through rep.
func publishState(ctx context.Context, e *timesteward.Engine, at timesteward.ExtendedTime, rep reporter) error {
	snap := e.TakeSnapshot(at.Base)
	defer e.ReleaseSnapshot(snap)

	data, err := e.SerializeSnapshot(snap, map[timesteward.TypeID][]timesteward.RowID{
		ball.BallTimelineType: {ball.BallRow},
	})
	if err != nil {
		return fmt.Errorf("serialize snapshot at %s: %w", at, err)
	}
	if err := rep.Publish(ctx, at, data); err != nil {
		return fmt.Errorf("publish report at %s: %w", at, err)
	}
	return nil
}

var _ reporter = synctest.Reporter{}
