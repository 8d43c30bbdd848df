/*
Package ball is the two-wall-corner worked example (spec §8 scenario 1-3):
a ball bouncing in constant-velocity motion off walls at x=10 and y=10.
Concrete physics is explicitly out of scope for the core scheduler; this
package exists only to give enginetest's conformance suite (and this
module's own tests) a small, concrete domain to drive the engine with.
*/
package ball

import (
	"encoding/gob"

	"github.com/timesteward/timesteward"
)

// Ball is never passed to RegisterEventBody (it is a DataTimeline value,
// not an event or predictor payload), so it is never registered with gob as
// a side effect of that call; register it directly, the same way the
// teacher registers its own Assembly variants before they ever cross the
// wire.
func init() {
	gob.Register(Ball{})
}

// TypeIDs used by this example. They are private to the example; nothing
// about their numbering is meaningful beyond uniqueness within one Engine.
const (
	BallTimelineType   timesteward.TypeID = 1
	BounceEventType    timesteward.TypeID = 2
	PushBallEventType  timesteward.TypeID = 3
	XWallPredictorType timesteward.TypeID = 4
	YWallPredictorType timesteward.TypeID = 5
)

// WallAt is the position, on either axis, of the two walls forming the
// corner the ball bounces around.
const WallAt int64 = 10

// BallRow is the single row identifying the ball in the Ball timeline.
var BallRow = timesteward.DeriveRowID(BallTimelineType, []byte("the-ball"))

// Ball holds position, velocity, and acceleration along the x (index 0)
// and y (index 1) axes, plus the base time at which Pos and Vel were last
// established. Acc is carried but unused by this example's predictors,
// which assume constant velocity; curved trajectories are exactly the
// "concrete physics" the core leaves to external collaborators.
type Ball struct {
	timesteward.InformationElement
	Pos   [2]int64
	Vel   [2]int64
	Acc   [2]int64
	Since int64
}

// advance extrapolates b's position to base (assuming constant velocity
// since b.Since) and re-anchors Since there. Every event body calls this
// before changing Vel, so Pos always reflects where the ball actually was
// at the moment of the change rather than where it was last written.
func advance(b Ball, base int64) Ball {
	dt := base - b.Since
	b.Pos[0] += b.Vel[0] * dt
	b.Pos[1] += b.Vel[1] * dt
	b.Since = base
	return b
}

// BounceEvent flips the ball's velocity along Axis (0 = x, 1 = y). The
// event body re-derives the ball's position by extrapolation rather than
// trusting a position carried on the event, so a retroactively edited
// earlier push still lands the bounce at the right place.
type BounceEvent struct {
	timesteward.InformationElement
	Axis int
}

// PushBall is a fiat event payload that adds DeltaVel to the ball's
// current velocity without moving it (spec §8 scenario 2's retroactive
// insertion).
type PushBall struct {
	timesteward.InformationElement
	DeltaVel [2]int64
}

// Register wires the Ball timeline, its two event bodies, and its two wall
// predictors into e, and spawns both predictors against BallRow. Callers
// must call e.InsertFiatEvent to seed the ball's initial state (as a
// PushBall, or any other registered event) before advancing.
func Register(e *timesteward.Engine) {
	e.RegisterTimeline(timesteward.NewFieldMap(BallTimelineType, timesteward.PerKey, 256))

	e.RegisterEventBody(BounceEventType, BounceEvent{}, func(m *timesteward.Mutator, payload timesteward.Value) error {
		ev := payload.(BounceEvent)
		b := advance(queryBall(&m.Accessor), int64(m.At().Base))
		b.Vel[ev.Axis] = -b.Vel[ev.Axis]
		m.Write(BallTimelineType, BallRow, b)
		return nil
	})

	e.RegisterEventBody(PushBallEventType, PushBall{}, func(m *timesteward.Mutator, payload timesteward.Value) error {
		push := payload.(PushBall)
		b := advance(queryBall(&m.Accessor), int64(m.At().Base))
		b.Vel[0] += push.DeltaVel[0]
		b.Vel[1] += push.DeltaVel[1]
		m.Write(BallTimelineType, BallRow, b)
		return nil
	})

	e.RegisterPredictor(XWallPredictorType, wallPredictor(0, XWallPredictorType))
	e.RegisterPredictor(YWallPredictorType, wallPredictor(1, YWallPredictorType))
	e.SpawnPredictor(XWallPredictorType, BallRow)
	e.SpawnPredictor(YWallPredictorType, BallRow)
}

func queryBall(a *timesteward.Accessor) Ball {
	v, ok := a.Query(BallTimelineType, BallRow)
	if !ok {
		return Ball{}
	}
	return v.(Ball)
}

// wallPredictor returns a PredictorFunc predicting the ball's next
// collision with the wall at WallAt along axis, assuming constant velocity
// since b.Since (never since the predictor's own re-run time, which may be
// long after Pos/Vel last actually changed).
func wallPredictor(axis int, typ timesteward.TypeID) timesteward.PredictorFunc {
	return func(a *timesteward.Accessor, subject timesteward.RowID) (timesteward.ExtendedTime, timesteward.Value, bool) {
		b := queryBall(a)
		v := b.Vel[axis]
		if v == 0 {
			return timesteward.ExtendedTime{}, nil, false
		}

		distance := WallAt - b.Pos[axis]
		var base int64
		switch {
		case distance == 0 && v > 0:
			// Already sitting on the wall and still pressing into it: the
			// collision is now, at the time this Pos/Vel became valid.
			base = b.Since
		case distance == 0:
			// Sitting on the wall but already moving away from it (the
			// bounce already happened): no new collision to predict.
			return timesteward.ExtendedTime{}, nil, false
		default:
			movingTowardWall := (distance > 0) == (v > 0)
			if !movingTowardWall || distance%v != 0 {
				return timesteward.ExtendedTime{}, nil, false
			}
			base = b.Since + distance/v
		}

		rng := timesteward.NewPredictorRNG(typ, subject, a.At().ID)
		id := rng.RowID()
		return timesteward.NewExtendedTime(timesteward.Time(base), id), BounceEvent{Axis: axis}, true
	}
}
