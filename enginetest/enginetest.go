// Package enginetest is a black-box conformance suite for a timesteward.Engine,
// driven entirely through the public Engine/Accessor/Mutator surface against
// the internal/ball worked example. Run can be called from any _test.go that
// wants to check an Engine configuration against spec §8's scenarios 1-3 and
// 6, plus duplicate-fiat, repeated-advance and snapshot checks, the way the teacher's own enginetest package let multiple storage backends
// share one conformance suite.
package enginetest

import (
	"context"
	"testing"

	"github.com/timesteward/timesteward"
	"github.com/timesteward/timesteward/internal/ball"
)

// Run exercises every scenario in this package against a freshly constructed
// Engine. Every scenario but IterationLimitExceeded configures it with cfg;
// that one always uses IterationLimit 0. Failures are reported against t via subtests,
// one per scenario, so a caller sees exactly which property broke.
func Run(t *testing.T, cfg timesteward.Config) {
	t.Helper()

	t.Run("TwoWallCorner", func(t *testing.T) { testTwoWallCorner(t, cfg) })
	t.Run("RetroactiveInsertionReordersOutcome", func(t *testing.T) { testRetroactiveInsertion(t, cfg) })
	t.Run("FiatRemovalUndoesCascade", func(t *testing.T) { testFiatRemovalUndoesCascade(t, cfg) })
	t.Run("DuplicateFiatRejected", func(t *testing.T) { testDuplicateFiatRejected(t, cfg) })
	t.Run("RepeatedAdvanceIsIdempotent", func(t *testing.T) { testRepeatedAdvanceIsIdempotent(t, cfg) })
	t.Run("SnapshotRoundTrip", func(t *testing.T) { testSnapshotRoundTrip(t, cfg) })
	t.Run("SnapshotSurvivesRetroactiveEditAfterPin", func(t *testing.T) { testSnapshotSurvivesRetroactiveEditAfterPin(t, cfg) })
	t.Run("IterationLimitExceeded", func(t *testing.T) { testIterationLimitExceeded(t) })
}

func newBallEngine(cfg timesteward.Config) *timesteward.Engine {
	e := timesteward.New(cfg)
	ball.Register(e)
	return e
}

func pushID(label string) timesteward.RowID {
	return timesteward.DeriveRowID(ball.PushBallEventType, []byte(label))
}

func mustInsert(t *testing.T, e *timesteward.Engine, at timesteward.Time, id timesteward.RowID, payload timesteward.Value) {
	t.Helper()
	if err := e.InsertFiatEvent(at, id, payload); err != nil {
		t.Fatalf("InsertFiatEvent(%d, %s): %v", at, id, err)
	}
}

func mustAdvance(t *testing.T, ctx context.Context, e *timesteward.Engine, target timesteward.Time) timesteward.AdvanceOutcome {
	t.Helper()
	outcome, err := e.AdvanceTo(ctx, target, nil)
	if err != nil {
		t.Fatalf("AdvanceTo(%d): %v", target, err)
	}
	return outcome
}

func queryBall(t *testing.T, e *timesteward.Engine, at timesteward.Time) (ball.Ball, bool) {
	t.Helper()
	snap := e.TakeSnapshot(at)
	defer e.ReleaseSnapshot(snap)
	v, ok := snap.Query(ball.BallTimelineType, ball.BallRow)
	if !ok {
		return ball.Ball{}, false
	}
	return v.(ball.Ball), true
}
