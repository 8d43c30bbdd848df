// Package synctest is a test-mode cross-machine determinism checker (spec
// §6, the NondeterminismDetected condition in §7): independent Engine
// instances replaying an identical fiat-event history each publish a hash
// of their state after every committed event to a shared pubsub topic; a
// Coordinator subscribed to that topic reports the first ExtendedTime at
// which two instances disagree.
//
// This is a side-channel test/ops tool, never part of the deterministic
// core itself — the core does not attempt to discover determinism
// violations in user code automatically (spec §1's non-goals).
package synctest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"gocloud.dev/pubsub"

	"github.com/timesteward/timesteward"
)

// StateHash is a content hash of a serialized snapshot, compared across
// engine instances to detect divergence. Two instances that replayed
// identical fiat-event histories deterministically must always agree.
type StateHash [32]byte

func (h StateHash) String() string { return fmt.Sprintf("%x", [32]byte(h)) }

// HashSnapshot computes a StateHash from a snapshot already encoded with
// Engine.SerializeSnapshot. Hashing the wire bytes, rather than comparing
// decoded values, piggybacks on the wire codec's own byte-identical
// guarantee instead of needing a second notion of state equality.
func HashSnapshot(encoded []byte) StateHash {
	return sha256.Sum256(encoded)
}

// Report is the message one engine instance publishes after a committed
// event: its position in the total order, a hash of its state as of that
// position, and which instance reported it.
type Report struct {
	At        timesteward.ExtendedTime
	StateHash StateHash
	EngineID  string
}

// Reporter publishes Reports to a shared topic.
type Reporter struct {
	EngineID string
	Topic    *pubsub.Topic
}

// Publish encodes and sends a Report for the engine's position at, hashing
// encodedSnapshot (the result of Engine.SerializeSnapshot for a snapshot
// taken at at). Callers should call Publish once per committed event —
// e.g. by driving AdvanceTo with a WorkBudget{MaxSteps: 1} loop — so the
// coordinator can localize a divergence to a single event rather than a
// whole AdvanceTo call's worth of them.
func (r Reporter) Publish(ctx context.Context, at timesteward.ExtendedTime, encodedSnapshot []byte) error {
	rep := Report{At: at, StateHash: HashSnapshot(encodedSnapshot), EngineID: r.EngineID}
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("synctest: encode report: %w", err)
	}
	if err := r.Topic.Send(ctx, &pubsub.Message{Body: body}); err != nil {
		return fmt.Errorf("synctest: send report: %w", err)
	}
	return nil
}
