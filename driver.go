package timesteward

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// WorkBudget bounds how many execution steps a single AdvanceTo call may
// take before returning control, per spec §5: "when exhausted, the driver
// returns control with P unchanged-or-advanced to a consistent ExtendedTime
// (never mid-event)."
type WorkBudget struct {
	MaxSteps int
}

func (b *WorkBudget) exhausted(steps int) bool {
	return b != nil && b.MaxSteps > 0 && steps >= b.MaxSteps
}

// AdvanceOutcome reports where the present cursor ended up after an
// AdvanceTo call, and whether it was cut short by the work budget.
type AdvanceOutcome struct {
	Present        ExtendedTime
	BudgetExceeded bool
}

// AdvanceTo is the driver's execution step (spec §4.6), repeated until the
// queue's min event exceeds target and no predictor is due at-or-before
// target, or the work budget is exhausted.
func (e *Engine) AdvanceTo(ctx context.Context, target Time, budget *WorkBudget) (AdvanceOutcome, error) {
	ctx, span := tracer.Start(ctx, "Engine.AdvanceTo", trace.WithAttributes(
		attribute.Int64("target", int64(target)),
	))
	defer span.End()

	steps := 0
	for {
		if budget.exhausted(steps) {
			advanceBudgetExhausted.Add(ctx, 1)
			return AdvanceOutcome{Present: e.present, BudgetExceeded: true}, nil
		}

		// A fiat removal that retracted an already-committed event left
		// nothing on the pending queue to make the next check notice it;
		// check for one explicitly, ahead of everything else, so its
		// rewind (and the re-run cascade it triggers) happens before any
		// stale prediction gets a chance to commit.
		if e.pendingRewind != nil && !target.Less(e.pendingRewind.Base) {
			tau := *e.pendingRewind
			e.pendingRewind = nil
			if err := e.rewindRemoval(ctx, tau); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return AdvanceOutcome{Present: e.present}, err
			}
			steps++
			continue
		}

		// Step 2 runs ahead of the next step-1 check: any predictor a
		// just-completed commit invalidated must be re-run — and the
		// queue entry it owned retracted or replaced — before the queue's
		// new min is trusted again (spec §4.6 step 2, "repeat from 1").
		// Only predictors whose last-predicted time is at-or-before
		// target are due now; the rest can wait for a later AdvanceTo.
		if due := e.duePredictors(target); len(due) > 0 {
			if err := e.runPredictors(ctx, due); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return AdvanceOutcome{Present: e.present}, err
			}
			steps++
			continue
		}

		if min, ok := e.queue.Min(); ok && !target.Less(min.Time.Base) {
			if min.Time.Less(e.present) {
				if err := e.rewind(ctx, min.Time); err != nil {
					span.SetStatus(codes.Error, err.Error())
					return AdvanceOutcome{Present: e.present}, err
				}
				steps++
				continue
			}
			if err := e.commit(ctx, min); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return AdvanceOutcome{Present: e.present}, err
			}
			steps++
			continue
		}

		break
	}

	if e.present.Base < target {
		e.present = ExtendedTime{Base: target, Iteration: 0, ID: e.present.ID}
	}

	return AdvanceOutcome{Present: e.present}, nil
}

// Less reports t < base, used above for readability at the call site.
func (t Time) Less(base Time) bool { return t < base }

// duePredictors filters the work-list down to instances whose last
// prediction (if any) falls at-or-before target, per spec §4.6 step 2's
// "with last-predicted time ≤ T (or null)". A predictor whose still-valid
// prediction lies beyond target needs no attention yet; deferring it avoids
// wasted re-runs when advancing to a nearby time repeatedly.
func (e *Engine) duePredictors(target Time) []*predictorInstance {
	all := e.predictors.Worklist()
	due := all[:0:0]
	for _, inst := range all {
		if !inst.hasPrediction || !target.Less(inst.lastPredicted.Base) {
			due = append(due, inst)
		}
	}
	return due
}

// commit runs E's body through a Mutator, records its writes and reads in
// the dependency graph, invalidates dependents, and advances the present
// cursor to E's ExtendedTime (spec §4.6 step 1b).
func (e *Engine) commit(ctx context.Context, E Event) error {
	ctx, span := tracer.Start(ctx, "Engine.commit", trace.WithAttributes(
		attribute.String("event.time", E.Time.String()),
	))
	defer span.End()

	_, _ = e.queue.ExtractMin()

	typeID, err := e.payloadTypes.TypeIDOf(E.Payload)
	if err != nil {
		return fmt.Errorf("commit %s: %w", E.Time, err)
	}
	body, ok := e.bodies[typeID]
	if !ok {
		corruptedInvariant("no body registered for event payload type %s", typeID)
	}

	m := &Mutator{Accessor: Accessor{engine: e, self: eventAccessor(E.Time), at: E.Time}}
	if err := body(m, E.Payload); err != nil {
		return fmt.Errorf("execute event at %s: %w", E.Time, err)
	}

	e.graph.ReplaceReads(m.self, m.reads)
	e.graph.RecordWrites(E.Time, m.writes)
	e.committed.Insert(E)
	e.present = E.Time

	eventsCommitted.Add(ctx, 1)

	// graph.Dependents filters by read time only for PerKeyRange edges
	// (reads at or after the write's ExtendedTime); PerKey and WholeTimeline
	// edges surface every reader of the region, including event accessors
	// that committed earlier. Each dependent is handed to MarkDue, which
	// places predictors on the lazy re-run work-list (spec §4.4) and ignores
	// event accessors: re-executing events is left to rewind, which re-queues
	// and re-commits them in ExtendedTime order, never to this loop.
	for _, wr := range m.writtenRegion {
		for _, dep := range e.graph.Dependents(wr.timeline, wr.region, E.Time) {
			e.predictors.MarkDue(dep)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// rewind undoes every committed event with time > tau in reverse
// ExtendedTime order (spec §4.6 step 3). It never consults
// SnapshotManager.CheckRetention: rewinding only removes and re-commits
// DataTimeline writes, it never discards anything a pinned Snapshot can see
// (see CheckRetention's own doc comment), so a live snapshot can never block
// a retroactive edit (spec §1(c), §4.7, invariant I5).
func (e *Engine) rewind(ctx context.Context, tau ExtendedTime) error {
	ctx, span := tracer.Start(ctx, "Engine.rewind", trace.WithAttributes(
		attribute.String("to", tau.String()),
	))
	defer span.End()

	var undone []Event
	e.committed.AscendFrom(tau, func(ev Event) bool {
		if ev.Time.Compare(tau) > 0 {
			undone = append(undone, ev)
		}
		return true
	})

	for i := len(undone) - 1; i >= 0; i-- {
		ev := undone[i]
		e.undoCommittedEvent(ev)
	}

	e.present = tau
	rewindDepth.Record(ctx, float64(len(undone)))
	span.SetStatus(codes.Ok, "")
	return nil
}

// rewindRemoval undoes the committed event at exactly `at` together with
// everything causally after it, used when RemoveFiatEvent retracts an id
// that had already committed (spec §8 scenario 3). Unlike rewind, called
// when a new event is about to take tau's place, here there is no
// replacement: at itself is undone too, and the present cursor falls back
// to whatever last committed strictly before it.
func (e *Engine) rewindRemoval(ctx context.Context, at ExtendedTime) error {
	ctx, span := tracer.Start(ctx, "Engine.rewindRemoval", trace.WithAttributes(
		attribute.String("at", at.String()),
	))
	defer span.End()

	if err := e.rewind(ctx, at); err != nil {
		return err
	}

	var target Event
	found := false
	e.committed.AscendFrom(at, func(ev Event) bool {
		if ev.Time.Compare(at) == 0 {
			target = ev
			found = true
		}
		return false
	})
	if found {
		e.undoCommittedEvent(target)
	}

	if last, ok := e.committed.Max(); ok {
		e.present = last.Time
	} else {
		e.present = ExtendedTime{}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (e *Engine) undoCommittedEvent(ev Event) {
	for _, fk := range e.graphWritesOf(ev.Time) {
		dt, err := e.timelineFor(fk.timeline)
		if err != nil {
			corruptedInvariant("undo event %s: %v", ev.Time, err)
		}
		dt.Remove(fk.key, ev.Time, nil)
	}
	e.graph.RemoveEventWrites(ev.Time)
	e.graph.RemoveAccessor(eventAccessor(ev.Time))
	e.committed.Delete(queueHandle{at: ev.Time, valid: true})

	if ev.Origin.Fiat {
		if _, removed := e.removedFiat[ev.Time.ID]; !removed {
			e.queue.Insert(ev)
		}
	} else {
		e.predictors.MarkDue(PredictedOrigin(ev.Origin.Predictor, ev.Origin.Subject).accessorHandle())
	}
}

func (o Origin) accessorHandle() accessorHandle {
	return accessorHandle{kind: accessorPredictor, predictorType: o.Predictor, subject: o.Subject}
}

// graphWritesOf is a small helper kept on Engine (rather than exported from
// DependencyGraph) since only the driver's undo path needs the raw write
// list rather than the dependents it implies.
func (e *Engine) graphWritesOf(at ExtendedTime) []fieldKey {
	e.graph.mu.Lock()
	defer e.graph.mu.Unlock()
	return append([]fieldKey(nil), e.graph.writes[at]...)
}

// predictorRun holds one due predictor instance's result, computed on its
// own Accessor so the read phase below can run every instance concurrently
// without any of them sharing mutable state.
type predictorRun struct {
	acc     *Accessor
	at      ExtendedTime
	payload Value
	ok      bool
}

// runPredictors runs every due predictor instance through an Accessor
// (spec §4.4), applying same-instant causal resolution (spec §4.6) to any
// candidate event that would otherwise sort before the event just executed
// at the same base time, and enforces the configured iteration bound
// (spec §4.6's Termination clause, §7's IterationLimitExceeded).
//
// A predictor body only ever reads (it is handed an *Accessor, never a
// *Mutator), so the due instances have no write-write or read-write
// conflicts among themselves; their reads are fanned out across goroutines
// via errgroup, the same WithContext/g.Go/g.Wait shape the teacher's
// disassembler.go uses to notify component changes in parallel. Everything
// that touches shared engine state — the dependency graph, the event queue,
// the work-list, the iteration bound — stays on this goroutine and is
// applied afterward in the original due order, so the outcome is identical
// to running the loop serially; only the (read-only) predictor bodies
// actually run concurrently.
func (e *Engine) runPredictors(ctx context.Context, due []*predictorInstance) error {
	ctx, span := tracer.Start(ctx, "Engine.runPredictors", trace.WithAttributes(
		attribute.Int("count", len(due)),
	))
	defer span.End()

	runs := make([]predictorRun, len(due))
	g, gctx := errgroup.WithContext(ctx)
	for i, inst := range due {
		i, inst := i, inst
		g.Go(func() error {
			acc := &Accessor{engine: e, self: inst.accessorHandle(), at: e.present}
			at, payload, ok := inst.fn(acc, inst.subject)
			runs[i] = predictorRun{acc: acc, at: at, payload: payload, ok: ok}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	for i, inst := range due {
		run := runs[i]
		e.graph.ReplaceReads(run.acc.self, run.acc.reads)

		if inst.queueHandle.Valid() {
			e.queue.Delete(inst.queueHandle)
			inst.queueHandle = queueHandle{}
		}

		predictorReruns.Add(ctx, 1)

		if !run.ok {
			inst.hasPrediction = false
			e.predictors.Clear(inst)
			continue
		}

		resolved := run.at
		if resolved.Base == e.present.Base && resolved.Iteration == 0 && resolved.ID.Compare(e.present.ID) < 0 {
			resolved = e.present.nextIteration(resolved.ID)
		}
		if resolved.Iteration > e.cfg.IterationLimit {
			return &IterationLimitError{Base: resolved.Base, Limit: e.cfg.IterationLimit}
		}

		ev := Event{Time: resolved, Payload: run.payload, Origin: PredictedOrigin(inst.typ, inst.subject)}
		inst.queueHandle = e.queue.Insert(ev)
		inst.lastPredicted = resolved
		inst.hasPrediction = true
		e.predictors.Clear(inst)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
