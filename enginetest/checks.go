package enginetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/timesteward/timesteward"
	"github.com/timesteward/timesteward/internal/ball"
)

// testTwoWallCorner drives a ball pushed diagonally at unit speed into the
// corner formed by the walls at x=10 and y=10: both walls are struck at the
// same instant (spec §8 scenario 1, property P1's determinism and P3's
// same-instant causal resolution).
func testTwoWallCorner(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	ctx := context.Background()

	mustInsert(t, e, 0, pushID("corner"), ball.PushBall{DeltaVel: [2]int64{1, 1}})
	mustAdvance(t, ctx, e, 10)

	got, ok := queryBall(t, e, 10)
	if !ok {
		t.Fatal("ball row missing after advancing past both wall collisions")
	}
	want := ball.Ball{Pos: [2]int64{10, 10}, Vel: [2]int64{-1, -1}, Since: 10}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ball state at t=10 (-want +got):\n%s", diff)
	}
}

// testRetroactiveInsertion checks that inserting a fiat event at a time
// before the engine's current present changes outcomes that were already
// committed, not just future ones (spec §8 scenario 2, property P2).
func testRetroactiveInsertion(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	ctx := context.Background()

	mustInsert(t, e, 0, pushID("x-only"), ball.PushBall{DeltaVel: [2]int64{1, 0}})
	mustAdvance(t, ctx, e, 10)

	baseline, ok := queryBall(t, e, 10)
	if !ok || baseline.Pos != ([2]int64{10, 0}) {
		t.Fatalf("baseline before retroactive insert = %+v, ok=%v, want Pos (10,0)", baseline, ok)
	}

	mustInsert(t, e, 2, pushID("y-retroactive"), ball.PushBall{DeltaVel: [2]int64{0, 1}})
	mustAdvance(t, ctx, e, 10)

	got, ok := queryBall(t, e, 10)
	if !ok {
		t.Fatal("ball row missing after retroactive insertion")
	}
	want := ball.Ball{Pos: [2]int64{10, 8}, Vel: [2]int64{-1, 1}, Since: 10}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ball state at t=10 after retroactive insert (-want +got):\n%s", diff)
	}
}

// testFiatRemovalUndoesCascade checks that removing a fiat event that has
// already committed also undoes everything that event (and anything it
// invalidated in turn) caused (spec §8 scenario 3).
func testFiatRemovalUndoesCascade(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	ctx := context.Background()

	id := pushID("to-be-removed")
	mustInsert(t, e, 0, id, ball.PushBall{DeltaVel: [2]int64{1, 1}})
	mustAdvance(t, ctx, e, 10)

	if b, ok := queryBall(t, e, 10); !ok || b.Vel == ([2]int64{}) {
		t.Fatalf("sanity check failed before removal: %+v, ok=%v", b, ok)
	}

	if err := e.RemoveFiatEvent(0, id); err != nil {
		t.Fatalf("RemoveFiatEvent: %v", err)
	}
	mustAdvance(t, ctx, e, 10)

	if _, ok := queryBall(t, e, 10); ok {
		t.Error("ball row still present after its only write was undone; want it gone entirely")
	}
}

// testDuplicateFiatRejected checks the fiat-id collision guard (spec §6).
func testDuplicateFiatRejected(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	id := pushID("dup")
	mustInsert(t, e, 0, id, ball.PushBall{DeltaVel: [2]int64{1, 0}})
	if err := e.InsertFiatEvent(1, id, ball.PushBall{DeltaVel: [2]int64{0, 1}}); err == nil {
		t.Fatal("InsertFiatEvent with a live duplicate id should have failed")
	}
}

// testRepeatedAdvanceIsIdempotent checks that calling AdvanceTo again at the
// same target, with nothing having changed in between, leaves state
// unchanged (spec §4.6's "never mid-event" and the general idempotence of
// re-reaching an already-reached present).
func testRepeatedAdvanceIsIdempotent(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	ctx := context.Background()

	mustInsert(t, e, 0, pushID("idempotent"), ball.PushBall{DeltaVel: [2]int64{1, 1}})
	mustAdvance(t, ctx, e, 10)
	first, _ := queryBall(t, e, 10)

	mustAdvance(t, ctx, e, 10)
	second, _ := queryBall(t, e, 10)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("state changed across a repeated AdvanceTo at the same target (-first +second):\n%s", diff)
	}
}

// testSnapshotRoundTrip checks that a serialized snapshot, loaded into a
// fresh Engine with identical registrations, reproduces the same state
// (spec §6, invariant I5).
func testSnapshotRoundTrip(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	ctx := context.Background()

	mustInsert(t, e, 0, pushID("snapshot-source"), ball.PushBall{DeltaVel: [2]int64{1, 1}})
	mustAdvance(t, ctx, e, 10)

	snap := e.TakeSnapshot(10)
	defer e.ReleaseSnapshot(snap)

	data, err := e.SerializeSnapshot(snap, map[timesteward.TypeID][]timesteward.RowID{
		ball.BallTimelineType: {ball.BallRow},
	})
	if err != nil {
		t.Fatalf("SerializeSnapshot: %v", err)
	}

	restored := newBallEngine(cfg)
	if err := restored.LoadSnapshot(data); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	want, ok := queryBall(t, e, 10)
	if !ok {
		t.Fatal("original ball row missing before comparing against restored engine")
	}
	got, ok := queryBall(t, restored, 10)
	if !ok {
		t.Fatal("restored ball row missing after LoadSnapshot")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("restored state (-want +got):\n%s", diff)
	}
}

// testSnapshotSurvivesRetroactiveEditAfterPin checks that a live, pinned
// Snapshot never blocks a retroactive fiat-event insertion whose rewind
// target falls at or after the pin's own ExtendedTime (spec §1(c), §4.7,
// invariant I5): pinning a snapshot must never make retroactive editing
// unavailable, since FieldMap.Snapshot already copied everything the pin
// can see at take time.
func testSnapshotSurvivesRetroactiveEditAfterPin(t *testing.T, cfg timesteward.Config) {
	e := newBallEngine(cfg)
	ctx := context.Background()

	mustInsert(t, e, 0, pushID("initial"), ball.PushBall{DeltaVel: [2]int64{1, 0}})
	mustAdvance(t, ctx, e, 5)

	pinned := e.TakeSnapshot(5)
	before, ok := pinned.Query(ball.BallTimelineType, ball.BallRow)
	if !ok {
		t.Fatal("pinned snapshot missing the ball row")
	}

	mustAdvance(t, ctx, e, 7)

	// This insertion lands after the pinned snapshot's own ExtendedTime, the
	// exact case that once tripped SnapshotManager.CheckRetention: rewinding
	// to re-run it must succeed regardless of the live pin.
	mustInsert(t, e, 6, pushID("retroactive-after-pin"), ball.PushBall{DeltaVel: [2]int64{0, 1}})
	mustAdvance(t, ctx, e, 7)

	got, ok := queryBall(t, e, 7)
	if !ok {
		t.Fatal("ball row missing after the retroactive edit")
	}
	want := ball.Ball{Pos: [2]int64{6, 0}, Vel: [2]int64{1, 1}, Since: 6}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ball state at t=7 after retroactive edit (-want +got):\n%s", diff)
	}

	after, ok := pinned.Query(ball.BallTimelineType, ball.BallRow)
	e.ReleaseSnapshot(pinned)
	if !ok {
		t.Fatal("pinned snapshot lost the ball row after the retroactive edit")
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("pinned snapshot's own view changed after a later retroactive edit (-before +after):\n%s", diff)
	}
}

// testIterationLimitExceeded checks that a same-instant causal-resolution
// bump beyond the configured IterationLimit is reported as an
// IterationLimitError rather than silently accepted (spec §7's
// IterationLimitExceeded; spec §8 scenario 6).
//
// The two-wall-corner scenario produces at most one same-instant causal
// bump: whichever of the x- and y-wall predictors' candidate events
// sorts second re-derives its id from the first one's id once the first
// commits, and that re-derived id has some chance of sorting before the
// committed one, forcing the bump. With IterationLimit set to 0, any bump
// at all exceeds it. Since the id derivation is a keyed hash, whether this
// particular run needs a bump is outside this test's control; when it
// doesn't, the test skips rather than asserting a specific hash outcome.
func testIterationLimitExceeded(t *testing.T) {
	e := timesteward.New(timesteward.Config{IterationLimit: 0})
	ball.Register(e)
	ctx := context.Background()

	mustInsert(t, e, 0, pushID("runaway"), ball.PushBall{DeltaVel: [2]int64{1, 1}})

	_, err := e.AdvanceTo(ctx, 10, nil)
	if err == nil {
		t.Skip("this run's id derivation didn't need a same-instant bump; IterationLimit was never tested")
	}
	var iterErr *timesteward.IterationLimitError
	if !errors.As(err, &iterErr) {
		t.Fatalf("AdvanceTo error = %v, want *IterationLimitError", err)
	}
}
