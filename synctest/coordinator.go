package synctest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"

	"github.com/timesteward/timesteward"
)

// Divergence pairs the first Report seen for an ExtendedTime with a later
// Report for it whose StateHash disagrees — the NondeterminismDetected
// condition (spec §7).
type Divergence struct {
	At     timesteward.ExtendedTime
	First  Report
	Second Report
}

func (d Divergence) Error() string {
	return fmt.Sprintf("synctest: nondeterminism detected at %s: %s reported %s, %s reported %s",
		d.At, d.First.EngineID, d.First.StateHash, d.Second.EngineID, d.Second.StateHash)
}

// Coordinator watches a shared subscription for Reports from independent
// engine instances and detects the first point at which they disagree.
// Its comparison state (seen) is not safe for concurrent use; a Coordinator
// is driven by exactly one Watch loop.
type Coordinator struct {
	sub  *pubsub.Subscription
	seen map[timesteward.ExtendedTime]Report
}

// NewCoordinator constructs a Coordinator reading Reports from sub.
func NewCoordinator(sub *pubsub.Subscription) *Coordinator {
	return &Coordinator{sub: sub, seen: make(map[timesteward.ExtendedTime]Report)}
}

// Watch returns a component.Proc that receives Reports until its context is
// done, invoking onDivergence for every Report whose StateHash disagrees
// with the first Report stored for its ExtendedTime. Divergence is reported
// as structured log data, not
// a panic: an internal invariant violation in this engine is a bug, but
// disagreement between two independent engine instances is exactly the
// condition this package exists to surface, per spec §7.
func (c *Coordinator) Watch(onDivergence func(Divergence)) component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context())
		for l.Continue() {
			msg, err := c.sub.Receive(l.Context())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return
				}
				l.Fatal(fmt.Errorf("synctest: receive: %w", err))
			}
			msg.Ack()

			var rep Report
			if err := json.Unmarshal(msg.Body, &rep); err != nil {
				l.Fatal(fmt.Errorf("synctest: decode report: %w", err))
			}

			div, diverged := c.record(rep)
			if !diverged {
				reportsReceived.Add(l.Context(), 1)
				continue
			}

			reportsDiverged.Add(l.Context(), 1)
			logger.Error("nondeterminism detected",
				slog.String("at", div.At.String()),
				slog.String("first_engine", div.First.EngineID),
				slog.String("second_engine", div.Second.EngineID),
			)
			onDivergence(div)
		}
	}
}

// record stores rep if it is the first Report seen for its ExtendedTime,
// or compares it against that first stored Report otherwise. It returns a
// Divergence and true for every later Report whose StateHash differs from
// the stored one, so one ExtendedTime can be flagged more than once; the
// stored Report is never replaced.
func (c *Coordinator) record(rep Report) (Divergence, bool) {
	prior, ok := c.seen[rep.At]
	if !ok {
		c.seen[rep.At] = rep
		return Divergence{}, false
	}
	if prior.StateHash == rep.StateHash {
		return Divergence{}, false
	}
	return Divergence{At: rep.At, First: prior, Second: rep}, true
}
