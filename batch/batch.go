/*
Package batch enables distributed fiat-event edits across processes by
letting callers record a reproducible sequence of insertions and removals
that can be stored, transmitted, and applied consistently against any
[timesteward.Engine] holding the same registrations.

The package provides a [Recorder] for collecting edit steps and a [Replay]
function for executing them. This supports the cross-machine determinism
workflow: the same recorded batch applied to independently-running engines
must advance them to identical state, which is exactly what the
determinism checker in synctest verifies.
*/
package batch

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"iter"

	"github.com/timesteward/timesteward"
)

// Step represents a single fiat-event edit: an insertion or removal applied
// against a [timesteward.Engine].
//
// All Step implementations must be registered with gob to be serialisable.
type Step interface {
	// Do applies the edit to e.
	Do(ctx context.Context, e *timesteward.Engine) error
	// Targets yields the RowIDs this step affects.
	Targets() iter.Seq[timesteward.RowID]
}

// Encode serialises a slice of Steps into a portable byte array.
func Encode(s []Step) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("batch: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a slice of Steps from a previously encoded byte array.
func Decode(data []byte) ([]Step, error) {
	var s []Step
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("batch: gob decode: %w", err)
	}
	return s, nil
}

// Recorder accumulates a sequence of fiat-event edits that can later be
// applied to an Engine via [Replay]. The zero value is ready to use.
type Recorder struct {
	steps []Step
}

// Reset clears all accumulated steps.
func (r *Recorder) Reset() { r.steps = nil }

// Steps returns a copy of the currently recorded steps.
func (r *Recorder) Steps() []Step {
	s := make([]Step, len(r.steps))
	copy(s, r.steps)
	return s
}

// InsertFiatEvent records a step that inserts a fiat event at time with the
// given id and payload (spec §6).
func (r *Recorder) InsertFiatEvent(at timesteward.Time, id timesteward.RowID, payload timesteward.Value) {
	r.steps = append(r.steps, insertFiatEvent{At: at, ID: id, Payload: payload})
}

// RemoveFiatEvent records a step that retracts a previously inserted fiat
// event.
func (r *Recorder) RemoveFiatEvent(at timesteward.Time, id timesteward.RowID) {
	r.steps = append(r.steps, removeFiatEvent{At: at, ID: id})
}

// Replay applies steps, in order, against e. If any step fails, Replay stops
// immediately and returns the error, leaving e partially edited; callers
// that need atomicity should snapshot e beforehand.
func Replay(ctx context.Context, e *timesteward.Engine, steps []Step) error {
	for i, step := range steps {
		if err := step.Do(ctx, e); err != nil {
			return fmt.Errorf("batch: step %d: %w", i, err)
		}
	}
	return nil
}

// Targets iterates over every RowID affected by steps, yielding each target
// exactly once.
func Targets(steps []Step) iter.Seq[timesteward.RowID] {
	return func(yield func(timesteward.RowID) bool) {
		seen := make(map[timesteward.RowID]struct{})
		for _, step := range steps {
			for target := range step.Targets() {
				if _, ok := seen[target]; ok {
					continue
				}
				seen[target] = struct{}{}
				if !yield(target) {
					return
				}
			}
		}
	}
}
